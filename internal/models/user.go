package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"github.com/stitts-dev/nhl-cortex/pkg/database"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

// TeamList is a text[] column on postgres and a plain text column elsewhere
type TeamList pq.StringArray

func (l TeamList) Value() (driver.Value, error) {
	return pq.StringArray(l).Value()
}

func (l *TeamList) Scan(src interface{}) error {
	return (*pq.StringArray)(l).Scan(src)
}

func (TeamList) GormDataType() string {
	return "text"
}

func (TeamList) GormDBDataType(db *gorm.DB, field *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "text[]"
	}
	return "text"
}

func (l TeamList) Contains(team string) bool {
	for _, t := range l {
		if strings.EqualFold(t, team) {
			return true
		}
	}
	return false
}

// User is a subscriber account. Premium is granted by the billing webhook.
type User struct {
	ID               uuid.UUID  `gorm:"type:uuid;primary_key" json:"id"`
	Email            string     `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FirstName        string     `gorm:"size:100" json:"first_name,omitempty"`
	LastName         string     `gorm:"size:100" json:"last_name,omitempty"`
	IsPremium        bool       `gorm:"default:false" json:"is_premium"`
	StripeCustomerID *string    `gorm:"size:255;index" json:"stripe_customer_id,omitempty"`
	PremiumSince     *time.Time `json:"premium_since,omitempty"`

	// Alerts
	PhoneNumber   string   `gorm:"size:20" json:"phone_number,omitempty"`
	SMSAlerts     bool     `gorm:"default:false" json:"sms_alerts"`
	FollowedTeams TeamList `json:"followed_teams"`

	PhoneVerified bool       `gorm:"default:false" json:"phone_verified"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`

	IsStaff   bool      `gorm:"default:false" json:"is_staff"`
	IsActive  bool      `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = NormalizeEmail(u.Email)
	return nil
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DisplayName returns the full name, or the email when no name is set
func (u *User) DisplayName() string {
	if full := strings.TrimSpace(u.FirstName + " " + u.LastName); full != "" {
		return full
	}
	return u.Email
}

// WantsAlertsFor reports whether an SMS alert for team should reach this user
func (u *User) WantsAlertsFor(team string) bool {
	if !u.SMSAlerts || !u.IsPremium || u.PhoneNumber == "" {
		return false
	}
	return len(u.FollowedTeams) == 0 || u.FollowedTeams.Contains(team)
}

func CreateUser(db *database.DB, user *User) error {
	if NormalizeEmail(user.Email) == "" {
		return fmt.Errorf("email is required: %w", utils.ErrInvalidInput)
	}
	if err := db.Create(user).Error; err != nil {
		return fmt.Errorf("create user %s: %w", user.Email, err)
	}
	return nil
}

func GetUserByID(db *database.DB, id uuid.UUID) (*User, error) {
	var user User
	err := db.Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", id, utils.ErrNotFound)
	}
	return &user, err
}

func GetUserByEmail(db *database.DB, email string) (*User, error) {
	var user User
	err := db.Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user %s: %w", email, utils.ErrNotFound)
	}
	return &user, err
}

// GetUserByPhoneNumber returns the account registered to an E.164 number
func GetUserByPhoneNumber(db *database.DB, phoneNumber string) (*User, error) {
	var user User
	err := db.Where("phone_number = ?", phoneNumber).Order("created_at").First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("user with phone %s: %w", phoneNumber, utils.ErrNotFound)
	}
	return &user, err
}

// RecordLogin marks the phone verified and stamps the login time
func (u *User) RecordLogin(db *database.DB, at time.Time) error {
	u.PhoneVerified = true
	u.LastLoginAt = &at
	return db.Model(u).Updates(map[string]interface{}{
		"phone_verified": true,
		"last_login_at":  at,
	}).Error
}

// SetStaff grants or removes access to the admin routes
func SetStaff(db *database.DB, email string, staff bool) (*User, error) {
	user, err := GetUserByEmail(db, email)
	if err != nil {
		return nil, err
	}
	if err := db.Model(user).Update("is_staff", staff).Error; err != nil {
		return nil, fmt.Errorf("set staff for %s: %w", user.Email, err)
	}
	user.IsStaff = staff
	return user, nil
}

// MarkPremium grants premium and records the billing customer
func MarkPremium(db *database.DB, id uuid.UUID, customerID string) (*User, error) {
	user, err := GetUserByID(db, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]interface{}{"is_premium": true}
	if customerID != "" {
		updates["stripe_customer_id"] = customerID
	}
	if user.PremiumSince == nil {
		updates["premium_since"] = now
	}
	if err := db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("mark user %s premium: %w", id, err)
	}
	return GetUserByID(db, id)
}

// SetPremiumByCustomer toggles premium for the user owning a billing customer
func SetPremiumByCustomer(db *database.DB, customerID string, premium bool) (int64, error) {
	if customerID == "" {
		return 0, nil
	}
	res := db.Model(&User{}).Where("stripe_customer_id = ?", customerID).Update("is_premium", premium)
	return res.RowsAffected, res.Error
}

// RevokePremiumByCustomer ends premium when a subscription is cancelled
func RevokePremiumByCustomer(db *database.DB, customerID string) (int64, error) {
	return SetPremiumByCustomer(db, customerID, false)
}

// ListSMSSubscribers returns active premium users who opted into text alerts
func ListSMSSubscribers(db *database.DB) ([]User, error) {
	var users []User
	err := db.Where("is_active = ? AND is_premium = ? AND sms_alerts = ? AND phone_number <> ''", true, true, true).
		Order("created_at").
		Find(&users).Error
	return users, err
}
