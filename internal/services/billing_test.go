package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v76"

	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/internal/testutil"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

const testWebhookSecret = "whsec_test"

// MockCheckoutSessions for testing
type MockCheckoutSessions struct {
	mock.Mock
}

func (m *MockCheckoutSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	args := m.Called(params)
	sess, _ := args.Get(0).(*stripe.CheckoutSession)
	return sess, args.Error(1)
}

func newBilling(t *testing.T, sessions checkoutSessions) (*BillingService, *database.DB) {
	t.Helper()
	db := testutil.NewTestDB(t, models.All()...)
	cfg := BillingConfig{SecretKey: "sk_test", PriceID: "price_premium", WebhookSecret: testWebhookSecret}
	return newBillingService(db, sessions, cfg, quietLogger()), db
}

// sign builds a Stripe-Signature header for payload
func sign(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func event(eventType, object string) []byte {
	return []byte(fmt.Sprintf(`{"id":"evt_1","object":"event","api_version":"2023-10-16","type":%q,"data":{"object":%s}}`, eventType, object))
}

func TestCreateCheckoutSession(t *testing.T) {
	sessions := new(MockCheckoutSessions)
	svc, db := newBilling(t, sessions)

	user := &models.User{Email: "fan@example.com"}
	require.NoError(t, models.CreateUser(db, user))

	sessions.On("New", mock.MatchedBy(func(p *stripe.CheckoutSessionParams) bool {
		return *p.Mode == string(stripe.CheckoutSessionModeSubscription) &&
			*p.LineItems[0].Price == "price_premium" &&
			*p.ClientReferenceID == user.ID.String() &&
			*p.CustomerEmail == "fan@example.com" &&
			p.Customer == nil &&
			*p.SuccessURL == "https://cortex.example/nhl/dashboard?payment=success" &&
			*p.CancelURL == "https://cortex.example/nhl/dashboard?payment=cancelled"
	})).Return(&stripe.CheckoutSession{ID: "cs_123", URL: "https://checkout.stripe.com/c/cs_123"}, nil).Once()

	sess, err := svc.CreateCheckoutSession(user, "https://cortex.example/")
	require.NoError(t, err)
	assert.Equal(t, "cs_123", sess.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/cs_123", sess.URL)
	sessions.AssertExpectations(t)
}

func TestCreateCheckoutSessionExistingCustomer(t *testing.T) {
	sessions := new(MockCheckoutSessions)
	svc, _ := newBilling(t, sessions)

	customer := "cus_123"
	user := &models.User{Email: "fan@example.com", StripeCustomerID: &customer}

	sessions.On("New", mock.MatchedBy(func(p *stripe.CheckoutSessionParams) bool {
		return p.Customer != nil && *p.Customer == "cus_123" && p.CustomerEmail == nil
	})).Return(nil, errors.New("card declined")).Once()

	_, err := svc.CreateCheckoutSession(user, "https://cortex.example")
	var appErr *utils.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, utils.ErrCodeBilling, appErr.Code)
}

func TestCreateCheckoutSessionNotConfigured(t *testing.T) {
	db := testutil.NewTestDB(t, models.All()...)
	svc := newBillingService(db, new(MockCheckoutSessions), BillingConfig{}, quietLogger())

	_, err := svc.CreateCheckoutSession(&models.User{Email: "fan@example.com"}, "https://cortex.example")
	assert.ErrorIs(t, err, utils.ErrNotConfigured)

	_, err = svc.HandleWebhook([]byte(`{}`), "t=1,v1=00")
	assert.ErrorIs(t, err, utils.ErrNotConfigured)
}

func TestHandleWebhookCheckoutCompleted(t *testing.T) {
	svc, db := newBilling(t, nil)

	user := &models.User{Email: "fan@example.com"}
	require.NoError(t, models.CreateUser(db, user))

	payload := event("checkout.session.completed",
		fmt.Sprintf(`{"id":"cs_123","object":"checkout.session","client_reference_id":%q,"customer":"cus_123"}`, user.ID.String()))

	result, err := svc.HandleWebhook(payload, sign(payload, testWebhookSecret))
	require.NoError(t, err)
	assert.True(t, result.Handled)
	assert.Equal(t, user.ID.String(), result.UserID)

	reloaded, err := models.GetUserByID(db, user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsPremium)
	require.NotNil(t, reloaded.StripeCustomerID)
	assert.Equal(t, "cus_123", *reloaded.StripeCustomerID)
}

func TestHandleWebhookInvoiceAndCancellation(t *testing.T) {
	svc, db := newBilling(t, nil)

	customer := "cus_456"
	user := &models.User{Email: "fan@example.com", StripeCustomerID: &customer}
	require.NoError(t, models.CreateUser(db, user))

	invoice := event("invoice.payment_succeeded", `{"id":"in_1","object":"invoice","customer":"cus_456"}`)
	result, err := svc.HandleWebhook(invoice, sign(invoice, testWebhookSecret))
	require.NoError(t, err)
	assert.True(t, result.Handled)
	assert.Equal(t, int64(1), result.Updated)

	reloaded, err := models.GetUserByID(db, user.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.IsPremium)

	cancelled := event("customer.subscription.deleted", `{"id":"sub_1","object":"subscription","customer":"cus_456"}`)
	result, err = svc.HandleWebhook(cancelled, sign(cancelled, testWebhookSecret))
	require.NoError(t, err)
	assert.True(t, result.Handled)

	reloaded, err = models.GetUserByID(db, user.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsPremium)
}

func TestHandleWebhookUnknownUser(t *testing.T) {
	svc, _ := newBilling(t, nil)

	payload := event("checkout.session.completed",
		`{"id":"cs_1","object":"checkout.session","client_reference_id":"6f1c2f4e-3c1a-4f63-9d7b-4c1a2f0e9b11"}`)
	result, err := svc.HandleWebhook(payload, sign(payload, testWebhookSecret))
	require.NoError(t, err)
	assert.False(t, result.Handled)
}

func TestHandleWebhookRejectsBadSignature(t *testing.T) {
	svc, _ := newBilling(t, nil)

	payload := event("checkout.session.completed", `{"id":"cs_1","object":"checkout.session"}`)
	_, err := svc.HandleWebhook(payload, sign(payload, "whsec_wrong"))
	assert.ErrorIs(t, err, utils.ErrInvalidInput)

	_, err = svc.HandleWebhook(payload, "")
	assert.ErrorIs(t, err, utils.ErrInvalidInput)
}

func TestHandleWebhookIgnoresOtherEvents(t *testing.T) {
	svc, _ := newBilling(t, nil)

	payload := event("customer.created", `{"id":"cus_1","object":"customer"}`)
	result, err := svc.HandleWebhook(payload, sign(payload, testWebhookSecret))
	require.NoError(t, err)
	assert.False(t, result.Handled)
	assert.Equal(t, "customer.created", result.EventType)
}
