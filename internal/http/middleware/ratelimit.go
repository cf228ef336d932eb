package middleware

import (
	"math"
	"net/http"
	"strconv"

	"rental-backend/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit checks the class limit for the caller, keyed by user id when
// authenticated and by client IP otherwise. A nil registry disables it.
func RateLimit(reg *ratelimit.Registry, class ratelimit.Class) gin.HandlerFunc {
	return func(c *gin.Context) {
		if reg == nil {
			c.Next()
			return
		}
		id := c.GetString(userIDKey)
		if id == "" {
			id = "ip:" + c.ClientIP()
		}
		d := reg.Check(c.Request.Context(), class, id)
		if !d.Bypassed {
			c.Header("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			c.Header("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		}
		if !d.Allowed {
			secs := int(math.Ceil(d.RetryAfter.Seconds()))
			c.Header("Retry-After", strconv.Itoa(secs))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":      d.Err(class).Error(),
				"code":       "rate_limited",
				"retryAfter": secs,
				"request_id": GetRequestID(c),
			})
			return
		}
		c.Next()
	}
}
