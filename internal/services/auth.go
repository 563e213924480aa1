package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

const (
	otpLength = 6

	// per phone number
	maxCodesPerHour = 3
	codeCooldown    = time.Minute
)

// RegisterInput is a new account signing up with email and phone
type RegisterInput struct {
	Email       string
	PhoneNumber string
	FirstName   string
	LastName    string
}

// CodeSent acknowledges a verification code sent by SMS
type CodeSent struct {
	PhoneNumber string `json:"phone_number"`
	ExpiresIn   int    `json:"expires_in"`
}

// LoginResult is the account behind a verified code
type LoginResult struct {
	User      *models.User
	IsNewUser bool
}

// AuthService runs the phone one-time-code sign up and login flow. Tokens
// are issued by the HTTP layer.
type AuthService struct {
	db      *database.DB
	sender  SMSSender
	cache   Cache
	limiter RateLimiter
	logger  *logrus.Logger
	now     func() time.Time
}

func NewAuthService(db *database.DB, sender SMSSender, cache Cache, logger *logrus.Logger) *AuthService {
	return &AuthService{
		db:      db,
		sender:  sender,
		cache:   cache,
		limiter: NewSlidingWindowLimiter(maxCodesPerHour, time.Hour),
		logger:  logger,
		now:     time.Now,
	}
}

func normalizeLoginPhone(phone string) (string, error) {
	normalized, err := NormalizePhoneNumber(phone)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, utils.ErrInvalidInput)
	}
	return normalized, nil
}

// Register creates or refreshes an unverified account and texts it a code
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*CodeSent, error) {
	phone, err := normalizeLoginPhone(in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	email := models.NormalizeEmail(in.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("a valid email is required: %w", utils.ErrInvalidInput)
	}

	byPhone, err := models.GetUserByPhoneNumber(s.db, phone)
	switch {
	case err == nil:
		if byPhone.PhoneVerified || byPhone.Email != email {
			return nil, fmt.Errorf("phone number already registered, log in instead: %w", utils.ErrConflict)
		}
	case !errors.Is(err, utils.ErrNotFound):
		return nil, err
	}

	user, err := models.GetUserByEmail(s.db, email)
	switch {
	case err == nil:
		if user.PhoneVerified {
			return nil, fmt.Errorf("email already registered, log in instead: %w", utils.ErrConflict)
		}
		updates := map[string]interface{}{
			"phone_number": phone,
			"first_name":   strings.TrimSpace(in.FirstName),
			"last_name":    strings.TrimSpace(in.LastName),
		}
		if err := s.db.Model(user).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update pending user %s: %w", email, err)
		}
	case errors.Is(err, utils.ErrNotFound):
		user = &models.User{
			Email:       email,
			PhoneNumber: phone,
			FirstName:   strings.TrimSpace(in.FirstName),
			LastName:    strings.TrimSpace(in.LastName),
		}
		if err := models.CreateUser(s.db, user); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return s.sendCode(ctx, phone)
}

// Login texts a code to a verified, active account
func (s *AuthService) Login(ctx context.Context, phoneNumber string) (*CodeSent, error) {
	phone, err := normalizeLoginPhone(phoneNumber)
	if err != nil {
		return nil, err
	}

	user, err := models.GetUserByPhoneNumber(s.db, phone)
	if err != nil {
		return nil, err
	}
	if !user.PhoneVerified {
		return nil, fmt.Errorf("phone number not verified, complete registration first: %w", utils.ErrInvalidInput)
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account deactivated: %w", utils.ErrForbidden)
	}

	return s.sendCode(ctx, phone)
}

// Resend texts a fresh code to any account on phoneNumber
func (s *AuthService) Resend(ctx context.Context, phoneNumber string) (*CodeSent, error) {
	phone, err := normalizeLoginPhone(phoneNumber)
	if err != nil {
		return nil, err
	}
	if _, err := models.GetUserByPhoneNumber(s.db, phone); err != nil {
		return nil, err
	}
	return s.sendCode(ctx, phone)
}

// Verify consumes code and completes the registration or login
func (s *AuthService) Verify(ctx context.Context, phoneNumber, code string) (*LoginResult, error) {
	phone, err := normalizeLoginPhone(phoneNumber)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if err := models.ConsumeVerificationCode(s.db, phone, strings.TrimSpace(code), now); err != nil {
		return nil, err
	}

	user, err := models.GetUserByPhoneNumber(s.db, phone)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, fmt.Errorf("account deactivated: %w", utils.ErrForbidden)
	}

	isNew := !user.PhoneVerified
	if err := user.RecordLogin(s.db, now); err != nil {
		return nil, fmt.Errorf("record login for %s: %w", user.ID, err)
	}

	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "new_user": isNew}).Info("User signed in")
	return &LoginResult{User: user, IsNewUser: isNew}, nil
}

func codeCooldownKey(phone string) string {
	return "sms_rate_limit:" + phone
}

func (s *AuthService) sendCode(ctx context.Context, phone string) (*CodeSent, error) {
	if s.cache != nil {
		var recent bool
		if err := s.cache.Get(ctx, codeCooldownKey(phone), &recent); err == nil && recent {
			return nil, fmt.Errorf("code sent recently, wait before requesting another: %w", utils.ErrRateLimited)
		}
	}
	if err := s.limiter.Allow(phone); err != nil {
		return nil, fmt.Errorf("%v: %w", err, utils.ErrRateLimited)
	}

	code, err := generateOTPCode()
	if err != nil {
		return nil, fmt.Errorf("generate code: %w", err)
	}
	if _, err := models.CreateVerificationCode(s.db, phone, code, s.now().UTC()); err != nil {
		return nil, err
	}

	message := fmt.Sprintf("Your NHL Cortex code is %s. It expires in %d minutes.", code, int(models.VerificationCodeTTL.Minutes()))
	if err := s.sender.SendMessage(phone, message); err != nil {
		s.logger.WithField("to", phone).Errorf("Failed to send verification code: %v", err)
		return nil, fmt.Errorf("send verification code: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, codeCooldownKey(phone), true, codeCooldown); err != nil {
			s.logger.Debugf("Failed to set code cooldown: %v", err)
		}
	}

	return &CodeSent{PhoneNumber: phone, ExpiresIn: int(models.VerificationCodeTTL.Seconds())}, nil
}

func generateOTPCode() (string, error) {
	const digits = "0123456789"
	code := make([]byte, otpLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		code[i] = digits[n.Int64()]
	}
	return string(code), nil
}
