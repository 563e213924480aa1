package models

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/stitts-dev/nhl-cortex/pkg/database"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

const (
	VerificationCodeTTL     = 10 * time.Minute
	MaxVerificationAttempts = 3
)

var (
	ErrInvalidCode     = fmt.Errorf("invalid or expired verification code: %w", utils.ErrUnauthorized)
	ErrTooManyAttempts = fmt.Errorf("too many verification attempts: %w", utils.ErrUnauthorized)
)

// PhoneVerificationCode is a one-time login code sent by SMS
type PhoneVerificationCode struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	PhoneNumber string    `gorm:"size:20;not null;index" json:"phone_number"`
	Code        string    `gorm:"size:6;not null" json:"-"`
	ExpiresAt   time.Time `gorm:"not null" json:"expires_at"`
	Attempts    int       `gorm:"default:0" json:"attempts"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateVerificationCode replaces any outstanding code for phoneNumber
func CreateVerificationCode(db *database.DB, phoneNumber, code string, now time.Time) (*PhoneVerificationCode, error) {
	verCode := &PhoneVerificationCode{
		PhoneNumber: phoneNumber,
		Code:        code,
		ExpiresAt:   now.Add(VerificationCodeTTL),
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("phone_number = ?", phoneNumber).Delete(&PhoneVerificationCode{}).Error; err != nil {
			return err
		}
		return tx.Create(verCode).Error
	})
	if err != nil {
		return nil, fmt.Errorf("create verification code: %w", err)
	}
	return verCode, nil
}

// ConsumeVerificationCode checks code against the outstanding code for
// phoneNumber. A match deletes it; a miss counts against the attempt limit.
func ConsumeVerificationCode(db *database.DB, phoneNumber, code string, now time.Time) error {
	var verCode PhoneVerificationCode
	err := db.Where("phone_number = ? AND expires_at > ?", phoneNumber, now).
		Order("created_at DESC").
		First(&verCode).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrInvalidCode
	}
	if err != nil {
		return err
	}

	if verCode.Attempts >= MaxVerificationAttempts {
		return ErrTooManyAttempts
	}

	if subtle.ConstantTimeCompare([]byte(verCode.Code), []byte(code)) != 1 {
		if err := db.Model(&verCode).UpdateColumn("attempts", gorm.Expr("attempts + 1")).Error; err != nil {
			return err
		}
		return ErrInvalidCode
	}

	return db.Delete(&verCode).Error
}
