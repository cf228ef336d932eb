package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"rental-backend/internal/domain"
)

type fakeBackend struct {
	hits   map[string][]time.Time
	err    error
	called int
}

func (f *fakeBackend) Hit(_ context.Context, key string, now time.Time, window time.Duration, limit int) (WindowState, error) {
	f.called++
	if f.err != nil {
		return WindowState{}, f.err
	}
	if f.hits == nil {
		f.hits = map[string][]time.Time{}
	}
	kept := f.hits[key][:0]
	for _, h := range f.hits[key] {
		if h.After(now.Add(-window)) {
			kept = append(kept, h)
		}
	}
	allowed := len(kept) < limit
	if allowed {
		kept = append(kept, now)
	}
	f.hits[key] = kept
	oldest := now
	if len(kept) > 0 {
		oldest = kept[0]
	}
	return WindowState{Allowed: allowed, Count: len(kept), OldestAt: oldest}, nil
}

func newTestRegistry(b Backend, now time.Time) *Registry {
	r := NewRegistry(b, map[Class]Limit{ClassCheckout: {Requests: 2, Window: time.Minute}})
	r.now = func() time.Time { return now }
	return r
}

func TestCheckFailsOpenWhenStoreErrors(t *testing.T) {
	r := newTestRegistry(&fakeBackend{err: errors.New("dial tcp: connection refused")}, time.Now())

	dec := r.Check(context.Background(), ClassCheckout, "user-1")
	if !dec.Allowed {
		t.Fatalf("expected allowed when store errors")
	}
	if !dec.Bypassed {
		t.Fatalf("expected decision to be marked bypassed")
	}
	if err := dec.Err(ClassCheckout); err != nil {
		t.Fatalf("bypassed decision must not produce an error, got %v", err)
	}
}

func TestCheckDeniesOverLimitWithRetryAfter(t *testing.T) {
	now := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	r := newTestRegistry(&fakeBackend{}, now)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if dec := r.Check(ctx, ClassCheckout, "user-1"); !dec.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	dec := r.Check(ctx, ClassCheckout, "user-1")
	if dec.Allowed {
		t.Fatalf("third request should be denied")
	}
	if dec.RetryAfter != time.Minute {
		t.Fatalf("expected retry after 1m, got %s", dec.RetryAfter)
	}
	rl, ok := domain.AsRateLimit(dec.Err(ClassCheckout))
	if !ok || rl.RetryAfter != time.Minute || rl.Class != "checkout" {
		t.Fatalf("expected RateLimitError, got %v", dec.Err(ClassCheckout))
	}

	if other := r.Check(ctx, ClassCheckout, "user-2"); !other.Allowed {
		t.Fatalf("identifiers must be limited independently")
	}
}

func TestRegistryCachesLimiterPerClass(t *testing.T) {
	r := newTestRegistry(&fakeBackend{}, time.Now())
	if r.For(ClassCheckout) != r.For(ClassCheckout) {
		t.Fatalf("expected same limiter instance for the same class")
	}
	if r.For(ClassCheckout) == r.For(ClassCatalog) {
		t.Fatalf("expected distinct limiters per class")
	}
	if got := r.For(ClassCatalog).Limit(); got != fallbackLimit {
		t.Fatalf("unconfigured class should use fallback limit, got %+v", got)
	}
}
