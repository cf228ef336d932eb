package handlers

import (
	"errors"
	"net/http"

	"rental-backend/internal/domain"
	"rental-backend/internal/http/middleware"
	"rental-backend/internal/payments"
	"rental-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

const maxWebhookBody = 1 << 20

// StripeWebhook POST /api/webhooks/stripe
//
// A non-2xx answer makes the gateway redeliver, so only failures worth
// retrying return 500.
func (h *Handlers) StripeWebhook(c *gin.Context) {
	reqID := middleware.GetRequestID(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	payload, err := c.GetRawData()
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_payload", "could not read body", nil)
		return
	}

	evt, err := h.Verifier.Verify(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		utils.LogEvent(reqID, "webhook", "signature", "rejected: "+err.Error())
		if errors.Is(err, payments.ErrInvalidSignature) {
			respondError(c, http.StatusBadRequest, "invalid_signature", "invalid signature", nil)
			return
		}
		respondError(c, http.StatusBadRequest, "invalid_payload", "invalid payload", nil)
		return
	}

	out, err := h.Webhooks.Process(c.Request.Context(), reqID, evt)
	if err != nil {
		if domain.IsValidation(err) {
			respondError(c, http.StatusBadRequest, "invalid_event", err.Error(), nil)
			return
		}
		utils.LogEvent(reqID, "webhook", "failed", "event="+evt.ID+" type="+evt.Type+" err="+errorChain(err))
		respondError(c, http.StatusInternalServerError, "processing_failed", "event processing failed", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": out.Duplicate})
}
