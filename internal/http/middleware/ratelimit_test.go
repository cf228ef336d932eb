package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rental-backend/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

type countingBackend struct {
	hits map[string]int
	err  error
}

func (b *countingBackend) Hit(_ context.Context, key string, now time.Time, window time.Duration, limit int) (ratelimit.WindowState, error) {
	if b.err != nil {
		return ratelimit.WindowState{}, b.err
	}
	b.hits[key]++
	n := b.hits[key]
	if n > limit {
		return ratelimit.WindowState{Allowed: false, Count: limit, OldestAt: now.Add(-window / 2)}, nil
	}
	return ratelimit.WindowState{Allowed: true, Count: n, OldestAt: now}, nil
}

func limitedRouter(b ratelimit.Backend) *gin.Engine {
	gin.SetMode(gin.TestMode)
	reg := ratelimit.NewRegistry(b, map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassCheckout: {Requests: 2, Window: time.Minute},
	})
	r := gin.New()
	r.GET("/checkout", RateLimit(reg, ratelimit.ClassCheckout), func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimitDeniesWithRetryAfter(t *testing.T) {
	r := limitedRouter(&countingBackend{hits: map[string]int{}})

	var w *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		w = httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/checkout", nil))
	}
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if got := w.Header().Get("Retry-After"); got != "30" {
		t.Fatalf("expected Retry-After 30, got %q", got)
	}
}

func TestRateLimitFailsOpen(t *testing.T) {
	r := limitedRouter(&countingBackend{err: errors.New("redis: connection refused")})

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/checkout", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200 while store is down, got %d", i, w.Code)
		}
	}
}
