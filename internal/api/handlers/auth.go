package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/nhl-cortex/internal/api/middleware"
	"github.com/stitts-dev/nhl-cortex/internal/models"
	"github.com/stitts-dev/nhl-cortex/internal/services"
	"github.com/stitts-dev/nhl-cortex/pkg/utils"
)

type AuthHandler struct {
	auth      *services.AuthService
	jwtSecret string
	tokenTTL  time.Duration
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	PhoneNumber string `json:"phone_number" binding:"required"`
	FirstName   string `json:"first_name,omitempty" binding:"max=100"`
	LastName    string `json:"last_name,omitempty" binding:"max=100"`
}

type VerifyRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Code        string `json:"code" binding:"required,len=6,numeric"`
}

type PhoneRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
	IsNewUser bool         `json:"is_new_user"`
}

func NewAuthHandler(auth *services.AuthService, jwtSecret string, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, jwtSecret: jwtSecret, tokenTTL: tokenTTL}
}

// Register starts sign up by texting a verification code
// POST /api/v1/auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	sent, err := h.auth.Register(c.Request.Context(), services.RegisterInput{
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
	})
	if err != nil {
		utils.SendErrorFrom(c, err)
		return
	}
	utils.SendSuccess(c, sent)
}

// Login texts a code to a registered phone number
// POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req PhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	sent, err := h.auth.Login(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		utils.SendErrorFrom(c, err)
		return
	}
	utils.SendSuccess(c, sent)
}

// ResendCode sends a fresh code
// POST /api/v1/auth/resend
func (h *AuthHandler) ResendCode(c *gin.Context) {
	var req PhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	sent, err := h.auth.Resend(c.Request.Context(), req.PhoneNumber)
	if err != nil {
		utils.SendErrorFrom(c, err)
		return
	}
	utils.SendSuccess(c, sent)
}

// Verify exchanges a code for a token
// POST /api/v1/auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	result, err := h.auth.Verify(c.Request.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		utils.SendErrorFrom(c, err)
		return
	}

	token, expiresAt, err := h.issue(result.User)
	if err != nil {
		utils.SendInternalError(c, "Failed to generate token")
		return
	}

	utils.SendSuccess(c, AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      result.User,
		IsNewUser: result.IsNewUser,
	})
}

// GetCurrentUser returns the signed in account
// GET /api/v1/auth/me
func (h *AuthHandler) GetCurrentUser(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		utils.SendUnauthorized(c, "Account not found")
		return
	}
	utils.SendSuccess(c, user)
}

// RefreshToken issues a new token for the signed in account
// POST /api/v1/auth/refresh
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	user, ok := middleware.GetUser(c)
	if !ok {
		utils.SendUnauthorized(c, "Account not found")
		return
	}

	token, expiresAt, err := h.issue(user)
	if err != nil {
		utils.SendInternalError(c, "Failed to generate token")
		return
	}
	utils.SendSuccess(c, gin.H{
		"token":      token,
		"expires_at": expiresAt,
	})
}

func (h *AuthHandler) issue(user *models.User) (string, time.Time, error) {
	expiresAt := time.Now().Add(h.tokenTTL).UTC()
	token, err := middleware.IssueToken(h.jwtSecret, user.ID, user.Email, h.tokenTTL)
	return token, expiresAt, err
}
