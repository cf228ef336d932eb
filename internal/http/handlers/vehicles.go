package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"rental-backend/internal/repositories"

	"github.com/gin-gonic/gin"
)

// ListVehicles GET /api/vehicles?make=Honda&maxDailyRate=9000&available=true
func (h *Handlers) ListVehicles(c *gin.Context) {
	f := repositories.VehicleFilter{Make: strings.TrimSpace(c.Query("make"))}
	if raw := strings.TrimSpace(c.Query("maxDailyRate")); raw != "" {
		rate, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || rate <= 0 {
			respondError(c, http.StatusBadRequest, "validation_error", "maxDailyRate: must be a positive integer", nil)
			return
		}
		f.MaxDailyRate = rate
	}
	if raw := strings.TrimSpace(c.Query("available")); raw != "" {
		avail, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", "available: must be a boolean", nil)
			return
		}
		f.OnlyAvail = avail
	}

	list, err := h.Catalog.ListVehicles(c.Request.Context(), f)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": list})
}

// GetVehicle GET /api/vehicles/:id
func (h *Handlers) GetVehicle(c *gin.Context) {
	v, err := h.Catalog.GetVehicle(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

// ListDeliveryLocations GET /api/delivery-locations
func (h *Handlers) ListDeliveryLocations(c *gin.Context) {
	list, err := h.Catalog.ListDeliveryLocations(c.Request.Context())
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"locations": list})
}
