package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"rental-backend/internal/domain"
	"rental-backend/internal/http/middleware"
	"rental-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

// ErrorResponse standardizes error payloads.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func respondError(c *gin.Context, status int, code, message string, details any) {
	if code == "" {
		code = http.StatusText(status)
	}
	c.JSON(status, ErrorResponse{
		Error:     message,
		Code:      code,
		Details:   details,
		RequestID: middleware.GetRequestID(c),
	})
}

// RespondDomainError maps domain errors to HTTP responses. Dependency
// failures are logged with their cause and reported generically.
func RespondDomainError(c *gin.Context, err error) {
	if rl, ok := domain.AsRateLimit(err); ok {
		secs := int(math.Ceil(rl.RetryAfter.Seconds()))
		c.Header("Retry-After", strconv.Itoa(secs))
		respondError(c, http.StatusTooManyRequests, "rate_limited", err.Error(), gin.H{"retryAfter": secs})
		return
	}
	if ext, ok := domain.AsExternal(err); ok {
		utils.LogEvent(middleware.GetRequestID(c), "http", "external_error", err.Error())
		code := ext.Code
		if code == "" {
			code = "external_error"
		}
		respondError(c, http.StatusBadGateway, code, ext.Service+" request failed", nil)
		return
	}

	switch {
	case domain.IsValidation(err):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case domain.IsNotFound(err):
		respondError(c, http.StatusNotFound, "not_found", err.Error(), nil)
	case domain.IsConflict(err):
		respondError(c, http.StatusConflict, "conflict", err.Error(), nil)
	case domain.IsForbidden(err):
		respondError(c, http.StatusForbidden, "forbidden", err.Error(), nil)
	default:
		utils.LogEvent(middleware.GetRequestID(c), "http", "internal_error", errorChain(err))
		msg := "internal error"
		if domain.IsInternal(err) {
			msg = err.Error()
		}
		respondError(c, http.StatusInternalServerError, "internal_error", msg, nil)
	}
}

func errorChain(err error) string {
	var ie domain.InternalError
	if errors.As(err, &ie) && ie.Err != nil {
		return ie.Msg + ": " + ie.Err.Error()
	}
	return err.Error()
}
