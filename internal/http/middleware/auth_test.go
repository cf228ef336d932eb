package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret"

func newAuthRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	handlers := append(mw, func(c *gin.Context) {
		rc := RequestContext(c)
		c.JSON(http.StatusOK, gin.H{"user": rc.UserID, "role": rc.Role})
	})
	r.GET("/me", handlers...)
	return r
}

func do(r *gin.Engine, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	r := newAuthRouter(AuthRequired(testSecret))

	if w := do(r, "", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: expected 401, got %d", w.Code)
	}

	bad, _ := IssueToken([]byte("other"), "user-1", RoleCustomer, "", time.Hour)
	if w := do(r, "Authorization", "Bearer "+bad); w.Code != http.StatusUnauthorized {
		t.Fatalf("foreign token: expected 401, got %d", w.Code)
	}

	expired, _ := IssueToken([]byte(testSecret), "user-1", RoleCustomer, "", -time.Minute)
	if w := do(r, "Authorization", "Bearer "+expired); w.Code != http.StatusUnauthorized {
		t.Fatalf("expired token: expected 401, got %d", w.Code)
	}

	good, err := IssueToken([]byte(testSecret), "user-1", RoleCustomer, "jane@example.com", time.Hour)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	w := do(r, "Authorization", "Bearer "+good)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body := w.Body.String(); body != `{"role":"customer","user":"user-1"}` {
		t.Fatalf("unexpected body %s", body)
	}
}

func TestRequireRoles(t *testing.T) {
	r := newAuthRouter(AuthRequired(testSecret), RequireRoles(RoleWorker))

	customer, _ := IssueToken([]byte(testSecret), "user-1", RoleCustomer, "", time.Hour)
	if w := do(r, "Authorization", "Bearer "+customer); w.Code != http.StatusForbidden {
		t.Fatalf("customer: expected 403, got %d", w.Code)
	}
	worker, _ := IssueToken([]byte(testSecret), "worker-1", RoleWorker, "", time.Hour)
	if w := do(r, "Authorization", "Bearer "+worker); w.Code != http.StatusOK {
		t.Fatalf("worker: expected 200, got %d", w.Code)
	}
}

func TestInternalOnly(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	r := newAuthRouter(InternalOnly(string(hash)))

	if w := do(r, "", ""); w.Code != http.StatusForbidden {
		t.Fatalf("no key: expected 403, got %d", w.Code)
	}
	if w := do(r, InternalKeyHeader, "wrong"); w.Code != http.StatusForbidden {
		t.Fatalf("wrong key: expected 403, got %d", w.Code)
	}
	if w := do(r, InternalKeyHeader, "s3cret-key"); w.Code != http.StatusOK {
		t.Fatalf("valid key: expected 200, got %d", w.Code)
	}
}

func TestInternalOnlyWithoutConfiguredHash(t *testing.T) {
	r := newAuthRouter(InternalOnly(""))
	if w := do(r, InternalKeyHeader, "anything"); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}
