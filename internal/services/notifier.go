package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
)

// Notifier announces freshly ingested value picks
type Notifier interface {
	NotifyValuePicks(ctx context.Context, date string, picks []models.Pick) error
}

// MultiNotifier fans out to every configured channel. One channel failing
// does not stop the others.
type MultiNotifier []Notifier

func (m MultiNotifier) NotifyValuePicks(ctx context.Context, date string, picks []models.Pick) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.NotifyValuePicks(ctx, date, picks); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// rankValuePicks orders picks by cortex score, best first
func rankValuePicks(picks []models.Pick) []models.Pick {
	ranked := make([]models.Pick, len(picks))
	copy(ranked, picks)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].CortexScore() > ranked[j].CortexScore()
	})
	return ranked
}

const maxPicksPerSMS = 3

// SMSNotifier texts premium subscribers about picks on the teams they follow
type SMSNotifier struct {
	db     *database.DB
	sender SMSSender
	logger *logrus.Logger
}

func NewSMSNotifier(db *database.DB, sender SMSSender, logger *logrus.Logger) *SMSNotifier {
	return &SMSNotifier{db: db, sender: sender, logger: logger}
}

func (n *SMSNotifier) NotifyValuePicks(ctx context.Context, date string, picks []models.Pick) error {
	if len(picks) == 0 {
		return nil
	}

	users, err := models.ListSMSSubscribers(n.db)
	if err != nil {
		return fmt.Errorf("list sms subscribers: %w", err)
	}

	ranked := rankValuePicks(picks)
	sent, failed := 0, 0
	for _, user := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		var mine []models.Pick
		for _, p := range ranked {
			if user.WantsAlertsFor(p.Team) {
				mine = append(mine, p)
			}
		}
		if len(mine) == 0 {
			continue
		}

		if err := n.sender.SendMessage(user.PhoneNumber, formatSMS(date, mine)); err != nil {
			failed++
			n.logger.WithField("user_id", user.ID).Warnf("Failed to send value pick SMS: %v", err)
			continue
		}
		sent++
	}

	n.logger.WithFields(logrus.Fields{"sent": sent, "failed": failed}).Info("Value pick SMS delivered")
	return nil
}

func formatSMS(date string, picks []models.Pick) string {
	var b strings.Builder
	fmt.Fprintf(&b, "NHL Cortex value picks %s:", date)
	for i, p := range picks {
		if i == maxPicksPerSMS {
			fmt.Fprintf(&b, "\n+%d more on the dashboard", len(picks)-maxPicksPerSMS)
			break
		}
		fmt.Fprintf(&b, "\n%s (%s vs %s) goal @ %s, cortex %.1f", p.PlayerName, p.Team, p.Opp, p.ResultGoal, p.CortexScore())
	}
	return b.String()
}
