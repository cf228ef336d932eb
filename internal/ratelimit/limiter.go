// Package ratelimit applies per-(class, identifier) sliding-window limits
// kept in a shared store, so every service instance sees the same counters.
//
// The limiter fails open: when the store cannot be reached the request is
// allowed and the decision is marked Bypassed.
package ratelimit

import (
	"context"
	"log"
	"sync"
	"time"

	"rental-backend/internal/domain"
)

type Class string

const (
	ClassCheckout     Class = "checkout"
	ClassExtension    Class = "extension"
	ClassVerification Class = "verification"
	ClassCatalog      Class = "catalog"
	ClassPOS          Class = "pos"
	ClassInternal     Class = "internal"
)

type Limit struct {
	Requests int
	Window   time.Duration
}

var DefaultLimits = map[Class]Limit{
	ClassCheckout:     {Requests: 5, Window: time.Minute},
	ClassExtension:    {Requests: 5, Window: time.Minute},
	ClassVerification: {Requests: 3, Window: time.Hour},
	ClassCatalog:      {Requests: 120, Window: time.Minute},
	ClassPOS:          {Requests: 60, Window: time.Minute},
	ClassInternal:     {Requests: 30, Window: time.Minute},
}

// fallbackLimit applies to classes missing from the configured limits.
var fallbackLimit = Limit{Requests: 60, Window: time.Minute}

type Decision struct {
	Allowed bool
	// Bypassed is set when the store failed and no limiting happened.
	Bypassed   bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// WindowState is what the store reports after recording a hit.
type WindowState struct {
	Allowed  bool
	Count    int
	OldestAt time.Time
}

// Backend records a hit in the window for key and reports the outcome.
type Backend interface {
	Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (WindowState, error)
}

type Limiter struct {
	class   Class
	limit   Limit
	backend Backend
	now     func() time.Time
}

func (l *Limiter) Class() Class { return l.class }
func (l *Limiter) Limit() Limit { return l.limit }

func (l *Limiter) Check(ctx context.Context, identifier string) Decision {
	if l.backend == nil {
		return Decision{Allowed: true, Bypassed: true, Limit: l.limit.Requests}
	}
	now := l.now()
	key := "ratelimit:" + string(l.class) + ":" + identifier
	st, err := l.backend.Hit(ctx, key, now, l.limit.Window, l.limit.Requests)
	if err != nil {
		log.Printf("[RATELIMIT] action=check class=%s msg=store unavailable, allowing: %v", l.class, err)
		return Decision{Allowed: true, Bypassed: true, Limit: l.limit.Requests}
	}

	remaining := l.limit.Requests - st.Count
	if remaining < 0 {
		remaining = 0
	}
	if st.Allowed {
		return Decision{Allowed: true, Limit: l.limit.Requests, Remaining: remaining}
	}

	retry := st.OldestAt.Add(l.limit.Window).Sub(now)
	if retry < time.Second {
		retry = time.Second
	}
	return Decision{Allowed: false, Limit: l.limit.Requests, Remaining: 0, RetryAfter: retry.Round(time.Second)}
}

// Err converts a denial into a domain.RateLimitError.
func (d Decision) Err(class Class) error {
	if d.Allowed {
		return nil
	}
	return domain.RateLimitError{Class: string(class), RetryAfter: d.RetryAfter}
}

// Registry hands out one Limiter per class and reuses it.
type Registry struct {
	backend Backend
	limits  map[Class]Limit
	now     func() time.Time

	mu       sync.Mutex
	limiters map[Class]*Limiter
}

func NewRegistry(backend Backend, limits map[Class]Limit) *Registry {
	if limits == nil {
		limits = DefaultLimits
	}
	return &Registry{
		backend:  backend,
		limits:   limits,
		now:      time.Now,
		limiters: make(map[Class]*Limiter),
	}
}

func (r *Registry) For(class Class) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.limiters[class]; ok {
		return l
	}
	limit, ok := r.limits[class]
	if !ok {
		limit = fallbackLimit
	}
	l := &Limiter{class: class, limit: limit, backend: r.backend, now: r.now}
	r.limiters[class] = l
	return l
}

func (r *Registry) Check(ctx context.Context, class Class, identifier string) Decision {
	return r.For(class).Check(ctx, identifier)
}
