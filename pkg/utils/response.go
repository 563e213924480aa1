package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *AppError   `json:"error,omitempty"`
}

func SendSuccess(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data:    data,
	})
}

func SendError(c *gin.Context, statusCode int, err *AppError) {
	c.JSON(statusCode, Response{
		Success: false,
		Error:   err,
	})
}

func SendValidationError(c *gin.Context, message string, details string) {
	SendError(c, http.StatusBadRequest, NewAppError(ErrCodeValidation, message, details))
}

func SendNotFound(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, NewAppError(ErrCodeNotFound, message))
}

func SendUnauthorized(c *gin.Context, message string) {
	SendError(c, http.StatusUnauthorized, NewAppError(ErrCodeUnauthorized, message))
}

func SendForbidden(c *gin.Context, message string) {
	SendError(c, http.StatusForbidden, NewAppError(ErrCodeForbidden, message))
}

func SendInternalError(c *gin.Context, message string) {
	SendError(c, http.StatusInternalServerError, NewAppError(ErrCodeInternal, message))
}

func SendConflict(c *gin.Context, message string) {
	SendError(c, http.StatusConflict, NewAppError(ErrCodeConflict, message))
}

func SendServiceUnavailable(c *gin.Context, message string) {
	SendError(c, http.StatusServiceUnavailable, NewAppError(ErrCodeUnavailable, message))
}

// SendErrorFrom maps a service error onto the matching HTTP response
func SendErrorFrom(c *gin.Context, err error) {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		SendError(c, statusForCode(appErr.Code), appErr)
	case errors.Is(err, ErrNotFound):
		SendNotFound(c, err.Error())
	case errors.Is(err, ErrInvalidInput):
		SendValidationError(c, "Invalid request", err.Error())
	case errors.Is(err, ErrUnauthorized):
		SendUnauthorized(c, err.Error())
	case errors.Is(err, ErrForbidden):
		SendForbidden(c, err.Error())
	case errors.Is(err, ErrConflict), errors.Is(err, ErrJobRunning):
		SendConflict(c, err.Error())
	case errors.Is(err, ErrRateLimited):
		SendError(c, http.StatusTooManyRequests, NewAppError(ErrCodeRateLimited, "Too many requests", err.Error()))
	case errors.Is(err, ErrNotConfigured):
		SendServiceUnavailable(c, err.Error())
	case errors.Is(err, ErrUpstream):
		SendError(c, http.StatusBadGateway, NewAppError(ErrCodeUpstream, "Upstream data source unavailable", err.Error()))
	default:
		SendInternalError(c, "Internal server error")
	}
}

func statusForCode(code string) int {
	switch code {
	case ErrCodeValidation, ErrCodeBilling:
		return http.StatusBadRequest
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeUpstream:
		return http.StatusBadGateway
	case ErrCodeUnavailable:
		return http.StatusServiceUnavailable
	case ErrCodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
