package handlers

import (
	"net/http"
	"strings"

	"rental-backend/internal/domain/models"
	"rental-backend/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// ListMyBookings GET /api/bookings
func (h *Handlers) ListMyBookings(c *gin.Context) {
	rc := middleware.RequestContext(c)
	list, err := h.Catalog.ListBookings(c.Request.Context(), rc.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": list})
}

// GetReceiptPDF GET /api/bookings/:id/receipt (inline PDF).
func (h *Handlers) GetReceiptPDF(c *gin.Context) {
	rc := middleware.RequestContext(c)
	svc := h.Receipts
	svc.RequestID = rc.RequestID

	pdfBytes, filename, err := svc.Generate(c.Request.Context(), strings.TrimSpace(c.Param("id")), rc.UserID)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.Header("Content-Disposition", `inline; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}

type driverVerificationRequest struct {
	Kind string `json:"kind"`
}

// StartDriverVerification POST /api/bookings/:id/drivers/:driverId/verification
func (h *Handlers) StartDriverVerification(c *gin.Context) {
	var req driverVerificationRequest
	if c.Request.ContentLength > 0 {
		if !BindJSONOrError(c, &req) {
			return
		}
	}
	kind := models.DriverKind(strings.TrimSpace(req.Kind))
	if kind == "" {
		kind = models.PrimaryDriver
	}
	res, err := h.Verifications.StartForDriver(c.Request.Context(), middleware.RequestContext(c),
		strings.TrimSpace(c.Param("id")), kind, strings.TrimSpace(c.Param("driverId")))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}
