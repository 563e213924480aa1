package services

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/internal/testutil"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

const fanPhone = "+14165550100"

func newAuthService(t *testing.T, sender SMSSender, cache Cache) (*AuthService, *models.User) {
	t.Helper()
	db := testutil.NewTestDB(t, models.All()...)
	svc := NewAuthService(db, sender, cache, quietLogger())
	svc.now = fixedClock(time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC))

	existing := &models.User{Email: "taken@example.com", PhoneNumber: "+14165550111", PhoneVerified: true}
	require.NoError(t, models.CreateUser(db, existing))
	return svc, existing
}

func TestAuthServiceRegisterSendsCode(t *testing.T) {
	sender := new(MockSMSSender)
	codeText := regexp.MustCompile(`code is \d{6}\. It expires in 10 minutes`)
	sender.On("SendMessage", fanPhone, mock.MatchedBy(codeText.MatchString)).Return(nil).Once()

	svc, _ := newAuthService(t, sender, nil)
	sent, err := svc.Register(context.Background(), RegisterInput{Email: " Fan@Example.com", PhoneNumber: "416-555-0100", FirstName: "Maple"})
	require.NoError(t, err)
	assert.Equal(t, &CodeSent{PhoneNumber: fanPhone, ExpiresIn: 600}, sent)

	user, err := models.GetUserByEmail(svc.db, "fan@example.com")
	require.NoError(t, err)
	assert.Equal(t, fanPhone, user.PhoneNumber)
	assert.Equal(t, "Maple", user.FirstName)
	assert.False(t, user.PhoneVerified)
	sender.AssertExpectations(t)
}

func TestAuthServiceRegisterConflicts(t *testing.T) {
	sender := new(MockSMSSender)
	svc, existing := newAuthService(t, sender, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Email: "new@example.com", PhoneNumber: existing.PhoneNumber})
	assert.ErrorIs(t, err, utils.ErrConflict)

	_, err = svc.Register(ctx, RegisterInput{Email: existing.Email, PhoneNumber: fanPhone})
	assert.ErrorIs(t, err, utils.ErrConflict)

	_, err = svc.Register(ctx, RegisterInput{Email: "not-an-email", PhoneNumber: fanPhone})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	_, err = svc.Register(ctx, RegisterInput{Email: "new@example.com", PhoneNumber: "555"})
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	sender.AssertNotCalled(t, "SendMessage", mock.Anything, mock.Anything)
}

func TestAuthServiceCooldownAndHourlyCap(t *testing.T) {
	sender := new(MockSMSSender)
	sender.On("SendMessage", mock.Anything, mock.Anything).Return(nil)
	cache := newMemoryCache()
	svc, existing := newAuthService(t, sender, cache)
	ctx := context.Background()

	_, err := svc.Login(ctx, existing.PhoneNumber)
	require.NoError(t, err)
	assert.True(t, cache.has(codeCooldownKey(existing.PhoneNumber)))

	_, err = svc.Resend(ctx, existing.PhoneNumber)
	assert.ErrorIs(t, err, utils.ErrRateLimited)

	// without the cooldown the hourly cap still applies
	svc.cache = nil
	for i := 0; i < maxCodesPerHour-1; i++ {
		_, err = svc.Resend(ctx, existing.PhoneNumber)
		require.NoError(t, err)
	}
	_, err = svc.Resend(ctx, existing.PhoneNumber)
	assert.ErrorIs(t, err, utils.ErrRateLimited)

	sender.AssertNumberOfCalls(t, "SendMessage", maxCodesPerHour)
}

func TestAuthServiceVerify(t *testing.T) {
	sender := new(MockSMSSender)
	svc, existing := newAuthService(t, sender, nil)
	ctx := context.Background()

	_, err := models.CreateVerificationCode(svc.db, existing.PhoneNumber, "424242", svc.now())
	require.NoError(t, err)

	_, err = svc.Verify(ctx, existing.PhoneNumber, "000000")
	assert.ErrorIs(t, err, utils.ErrUnauthorized)

	result, err := svc.Verify(ctx, "(416) 555-0111", "424242")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, result.User.ID)
	assert.False(t, result.IsNewUser)
	require.NotNil(t, result.User.LastLoginAt)

	_, err = svc.Verify(ctx, existing.PhoneNumber, "424242")
	assert.ErrorIs(t, err, models.ErrInvalidCode)
}

func TestAuthServiceLoginRules(t *testing.T) {
	sender := new(MockSMSSender)
	sender.On("SendMessage", mock.Anything, mock.Anything).Return(errors.New("twilio down")).Once()
	svc, existing := newAuthService(t, sender, nil)
	ctx := context.Background()

	_, err := svc.Login(ctx, "+14165550199")
	assert.ErrorIs(t, err, utils.ErrNotFound)

	_, err = svc.Login(ctx, existing.PhoneNumber)
	assert.EqualError(t, err, "send verification code: twilio down")

	require.NoError(t, svc.db.Model(existing).Update("is_active", false).Error)
	_, err = svc.Login(ctx, existing.PhoneNumber)
	assert.ErrorIs(t, err, utils.ErrForbidden)
}
