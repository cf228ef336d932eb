package handlers

import (
	"net/http"
	"strings"

	"rental-backend/internal/http/middleware"
	"rental-backend/internal/utils"

	"github.com/gin-gonic/gin"
)

type invalidateRequest struct {
	Target string `json:"target"`
}

// InvalidateCache POST /api/internal/cache/invalidate
func (h *Handlers) InvalidateCache(c *gin.Context) {
	var req invalidateRequest
	if !BindJSONOrError(c, &req) {
		return
	}
	target := strings.TrimSpace(req.Target)
	if target == "" {
		respondError(c, http.StatusBadRequest, "validation_error", "target: required", nil)
		return
	}
	n, err := h.Cache.InvalidateTarget(c.Request.Context(), target)
	if err != nil {
		utils.LogEvent(middleware.GetRequestID(c), "cache", "invalidate", "target="+target+" err="+err.Error())
		respondError(c, http.StatusInternalServerError, "cache_unavailable", "cache invalidation failed", nil)
		return
	}
	c.JSON(http.StatusOK, gin.H{"target": target, "deleted": n})
}
