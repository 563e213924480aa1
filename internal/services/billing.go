package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"

	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/pkg/database"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

// checkoutSessions is satisfied by the stripe-go checkout/session client
type checkoutSessions interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

type BillingConfig struct {
	SecretKey     string
	PriceID       string
	WebhookSecret string
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// WebhookResult reports what a Stripe event changed
type WebhookResult struct {
	EventType string `json:"event_type"`
	Handled   bool   `json:"handled"`
	UserID    string `json:"user_id,omitempty"`
	Updated   int64  `json:"updated"`
}

// BillingService sells the premium subscription through Stripe Checkout
type BillingService struct {
	db       *database.DB
	sessions checkoutSessions
	cfg      BillingConfig
	logger   *logrus.Logger
}

func NewBillingService(db *database.DB, cfg BillingConfig, logger *logrus.Logger) *BillingService {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return newBillingService(db, sc.CheckoutSessions, cfg, logger)
}

func newBillingService(db *database.DB, sessions checkoutSessions, cfg BillingConfig, logger *logrus.Logger) *BillingService {
	return &BillingService{
		db:       db,
		sessions: sessions,
		cfg:      cfg,
		logger:   logger,
	}
}

// CreateCheckoutSession opens a subscription checkout for user. The user id
// travels as client_reference_id so the webhook can find the account.
func (s *BillingService) CreateCheckoutSession(user *models.User, baseURL string) (*CheckoutSession, error) {
	if s.cfg.SecretKey == "" || s.cfg.PriceID == "" {
		return nil, fmt.Errorf("stripe checkout: %w", utils.ErrNotConfigured)
	}
	if user == nil {
		return nil, fmt.Errorf("checkout requires a user: %w", utils.ErrUnauthorized)
	}
	baseURL = strings.TrimRight(baseURL, "/")

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(s.cfg.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(baseURL + "/nhl/dashboard?payment=success"),
		CancelURL:         stripe.String(baseURL + "/nhl/dashboard?payment=cancelled"),
		ClientReferenceID: stripe.String(user.ID.String()),
	}
	if user.StripeCustomerID != nil && *user.StripeCustomerID != "" {
		params.Customer = user.StripeCustomerID
	} else {
		params.CustomerEmail = stripe.String(user.Email)
	}

	sess, err := s.sessions.New(params)
	if err != nil {
		s.logger.WithField("user_id", user.ID).Errorf("Stripe checkout failed: %v", err)
		return nil, utils.NewAppError(utils.ErrCodeBilling, "Failed to create checkout session", err.Error())
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

// HandleWebhook verifies and applies a Stripe event
func (s *BillingService) HandleWebhook(payload []byte, signature string) (*WebhookResult, error) {
	if s.cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("stripe webhook: %w", utils.ErrNotConfigured)
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, s.cfg.WebhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid webhook: %v: %w", err, utils.ErrInvalidInput)
	}

	result := &WebhookResult{EventType: string(event.Type)}
	log := s.logger.WithFields(logrus.Fields{"event_id": event.ID, "event_type": event.Type})

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return nil, fmt.Errorf("decode checkout session: %v: %w", err, utils.ErrInvalidInput)
		}
		return result, s.grantPremium(log, result, sess.ClientReferenceID, customerID(sess.Customer))

	case stripe.EventTypeInvoicePaymentSucceeded:
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %v: %w", err, utils.ErrInvalidInput)
		}
		ref := ""
		if inv.Metadata != nil {
			ref = inv.Metadata["client_reference_id"]
		}
		return result, s.grantPremium(log, result, ref, customerID(inv.Customer))

	case stripe.EventTypeCustomerSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %v: %w", err, utils.ErrInvalidInput)
		}
		n, err := models.RevokePremiumByCustomer(s.db, customerID(sub.Customer))
		if err != nil {
			return nil, fmt.Errorf("revoke premium: %w", err)
		}
		result.Handled = true
		result.Updated = n
		log.WithField("updated", n).Info("Premium revoked")
		return result, nil

	default:
		log.Debug("Ignoring Stripe event")
		return result, nil
	}
}

// grantPremium marks the referenced user premium, falling back to the
// customer id when the event carries no user reference
func (s *BillingService) grantPremium(log *logrus.Entry, result *WebhookResult, ref, customer string) error {
	if ref != "" {
		id, err := uuid.Parse(ref)
		if err != nil {
			log.WithField("client_reference_id", ref).Warn("Webhook references an invalid user id")
			return nil
		}

		user, err := models.MarkPremium(s.db, id, customer)
		if errors.Is(err, utils.ErrNotFound) {
			log.WithField("user_id", ref).Warn("Webhook references an unknown user")
			return nil
		}
		if err != nil {
			return fmt.Errorf("grant premium: %w", err)
		}

		result.Handled = true
		result.UserID = user.ID.String()
		result.Updated = 1
		log.WithField("user_id", user.ID).Info("Premium granted")
		return nil
	}

	n, err := models.SetPremiumByCustomer(s.db, customer, true)
	if err != nil {
		return fmt.Errorf("grant premium: %w", err)
	}
	result.Handled = n > 0
	result.Updated = n
	if n == 0 {
		log.WithField("customer", customer).Warn("Webhook customer matches no user")
	}
	return nil
}

func customerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}
