package handlers

import (
	"net/http"
	"strings"

	"rental-backend/internal/http/middleware"
	"rental-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// CreatePOSTransaction POST /api/pos/transactions
func (h *Handlers) CreatePOSTransaction(c *gin.Context) {
	var in services.POSTransactionInput
	if !BindJSONOrError(c, &in) {
		return
	}
	tx, err := h.Terminal.Create(c.Request.Context(), middleware.RequestContext(c), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tx)
}

// GetPOSTransaction GET /api/pos/transactions/:id
func (h *Handlers) GetPOSTransaction(c *gin.Context) {
	tx, err := h.Terminal.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// ProcessPOSTransaction POST /api/pos/transactions/:id/process
func (h *Handlers) ProcessPOSTransaction(c *gin.Context) {
	tx, err := h.Terminal.Process(c.Request.Context(), middleware.RequestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, tx)
}

// CancelPOSTransaction POST /api/pos/transactions/:id/cancel
func (h *Handlers) CancelPOSTransaction(c *gin.Context) {
	res, err := h.Terminal.Cancel(c.Request.Context(), middleware.RequestContext(c), strings.TrimSpace(c.Param("id")))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// StartWalkInVerification POST /api/pos/verifications
func (h *Handlers) StartWalkInVerification(c *gin.Context) {
	var in services.WalkInInput
	if !BindJSONOrError(c, &in) {
		return
	}
	res, err := h.Verifications.StartWalkIn(c.Request.Context(), middleware.RequestContext(c), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
