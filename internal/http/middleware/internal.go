package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const InternalKeyHeader = "X-Internal-Api-Key"

// InternalOnly admits callers presenting the shared internal API key. Only
// its bcrypt hash is configured.
func InternalOnly(keyHash string) gin.HandlerFunc {
	hash := []byte(strings.TrimSpace(keyHash))
	return func(c *gin.Context) {
		key := strings.TrimSpace(c.GetHeader(InternalKeyHeader))
		if len(hash) == 0 || key == "" {
			abort(c, http.StatusForbidden, "forbidden", "internal callers only")
			return
		}
		if err := bcrypt.CompareHashAndPassword(hash, []byte(key)); err != nil {
			abort(c, http.StatusForbidden, "forbidden", "internal callers only")
			return
		}
		c.Next()
	}
}
