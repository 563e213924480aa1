package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nhl-cortex/internal/models"
)

const maxPicksPerDigest = 10

// telegramSender is satisfied by *tgbotapi.BotAPI
type telegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts a value pick digest to a channel
type TelegramNotifier struct {
	bot            telegramSender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
	logger         *logrus.Logger
}

func NewTelegramNotifier(botToken string, chatID int64, logger *logrus.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	return newTelegramNotifier(bot, chatID, 3, time.Second, logger), nil
}

func newTelegramNotifier(bot telegramSender, chatID int64, maxRetries int, retryDelayBase time.Duration, logger *logrus.Logger) *TelegramNotifier {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &TelegramNotifier{
		bot:            bot,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
		logger:         logger,
	}
}

func (n *TelegramNotifier) NotifyValuePicks(ctx context.Context, date string, picks []models.Pick) error {
	if len(picks) == 0 {
		return nil
	}
	return n.sendMarkdownV2(ctx, formatDigest(date, rankValuePicks(picks)))
}

// sendMarkdownV2 sends with linear-backoff retry
func (n *TelegramNotifier) sendMarkdownV2(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < n.maxRetries; i++ {
		if _, err := n.bot.Send(msg); err == nil {
			return nil
		} else {
			lastErr = err
		}
		n.logger.Warnf("Telegram send failed (attempt %d/%d): %v", i+1, n.maxRetries, lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(n.retryDelayBase * time.Duration(i+1)):
		}
	}
	return fmt.Errorf("telegram: failed after %d retries: %w", n.maxRetries, lastErr)
}

func formatDigest(date string, picks []models.Pick) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏒 *Value picks for %s*\n\n", escapeMarkdownV2(date))

	for i, p := range picks {
		if i == maxPicksPerDigest {
			fmt.Fprintf(&b, "_and %d more_\n", len(picks)-maxPicksPerDigest)
			break
		}
		venue := "vs"
		if !p.IsHome {
			venue = "@"
		}
		prob := 0.0
		if p.PythonProb != nil {
			prob = *p.PythonProb
		}

		fmt.Fprintf(&b, "%d\\. *%s* %s\n", i+1,
			escapeMarkdownV2(p.PlayerName),
			escapeMarkdownV2(fmt.Sprintf("(%s %s %s)", p.Team, venue, p.Opp)))
		fmt.Fprintf(&b, "   %s\n",
			escapeMarkdownV2(fmt.Sprintf("goal @ %s | cortex %.1f | prob %.1f%%", p.ResultGoal, p.CortexScore(), prob)))
	}
	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text) + len(text)/4)
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
