package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/nhl-cortex/internal/api/middleware"
	"github.com/stitts-dev/nhl-cortex/internal/services"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

const maxWebhookBodyBytes = 65536

type BillingHandler struct {
	billing *services.BillingService
	baseURL string
}

func NewBillingHandler(billing *services.BillingService, baseURL string) *BillingHandler {
	return &BillingHandler{billing: billing, baseURL: baseURL}
}

// CreateCheckout opens a Stripe Checkout session for the signed in user
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		utils.SendUnauthorized(c, "Account not found")
		return
	}
	if user.IsPremium {
		utils.SendConflict(c, "Account is already premium")
		return
	}

	session, err := h.billing.CreateCheckoutSession(user, h.baseURL)
	if err != nil {
		utils.SendErrorFrom(c, err)
		return
	}
	utils.SendSuccess(c, session)
}

// StripeWebhook verifies and applies a Stripe event
func (h *BillingHandler) StripeWebhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.SendValidationError(c, "Unreadable webhook body", err.Error())
		return
	}

	result, err := h.billing.HandleWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		utils.SendErrorFrom(c, err)
		return
	}
	utils.SendSuccess(c, result)
}
