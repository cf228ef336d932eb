package handlers

import (
	"net/http"
	"strings"

	"rental-backend/internal/http/middleware"
	"rental-backend/internal/services"

	"github.com/gin-gonic/gin"
)

// CreateCheckout POST /api/checkout
func (h *Handlers) CreateCheckout(c *gin.Context) {
	var in services.CheckoutInput
	if !BindJSONOrError(c, &in) {
		return
	}
	res, err := h.Checkout.Checkout(c.Request.Context(), middleware.RequestContext(c), in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// ExtendBooking POST /api/bookings/:id/extend
func (h *Handlers) ExtendBooking(c *gin.Context) {
	var in services.ExtensionInput
	if !BindJSONOrError(c, &in) {
		return
	}
	id := strings.TrimSpace(c.Param("id"))
	res, err := h.Extensions.Extend(c.Request.Context(), middleware.RequestContext(c), id, in)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
