// Package cache implements cache-aside reads with jittered expiry on top of
// Redis, plus key and pattern invalidation.
package cache

import (
	"context"
	"encoding/json"
	"log"
	"math/rand/v2"
	"time"
)

const (
	DefaultJitter       = 0.10
	DefaultWriteTimeout = 2 * time.Second
	scanBatch           = 100
)

type Cache struct {
	backend      Backend
	jitter       float64
	writeTimeout time.Duration

	// random returns a value in [0,1). Overridable in tests.
	random func() float64
	// async runs write-backs off the request path.
	async func(func())
}

type Option func(*Cache)

func WithJitter(ratio float64) Option {
	return func(c *Cache) { c.jitter = ratio }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(c *Cache) { c.writeTimeout = d }
}

// WithSyncWrites performs write-backs inline.
func WithSyncWrites() Option {
	return func(c *Cache) { c.async = func(f func()) { f() } }
}

func New(b Backend, opts ...Option) *Cache {
	c := &Cache{
		backend:      b,
		jitter:       DefaultJitter,
		writeTimeout: DefaultWriteTimeout,
		random:       rand.Float64,
		async:        func(f func()) { go f() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// JitteredTTL spreads base by ±ratio using r in [0,1).
func JitteredTTL(base time.Duration, ratio, r float64) time.Duration {
	if base <= 0 || ratio <= 0 {
		return base
	}
	delta := (r*2 - 1) * ratio
	return time.Duration(float64(base) * (1 + delta))
}

func (c *Cache) TTL(base time.Duration) time.Duration {
	return JitteredTTL(base, c.jitter, c.random())
}

// GetOrSet returns the cached value for key, or calls fetch on a miss and
// stores the result asynchronously. Backend errors degrade to fetch.
func GetOrSet[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, fetch func(context.Context) (T, error)) (T, error) {
	if c == nil || c.backend == nil {
		return fetch(ctx)
	}

	raw, ok, err := c.backend.Get(ctx, key)
	if err != nil {
		log.Printf("[CACHE] action=get key=%s msg=backend error: %v", key, err)
	}
	if ok {
		var out T
		if err := json.Unmarshal([]byte(raw), &out); err == nil {
			return out, nil
		}
		log.Printf("[CACHE] action=decode key=%s msg=discarding unreadable entry", key)
	}

	val, err := fetch(ctx)
	if err != nil {
		return val, err
	}

	encoded, err := json.Marshal(val)
	if err != nil {
		log.Printf("[CACHE] action=encode key=%s msg=%v", key, err)
		return val, nil
	}
	effective := c.TTL(ttl)
	c.async(func() {
		wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.writeTimeout)
		defer cancel()
		if err := c.backend.Set(wctx, key, string(encoded), effective); err != nil {
			log.Printf("[CACHE] action=set key=%s msg=%v", key, err)
		}
	})
	return val, nil
}

// Invalidate deletes exact keys.
func (c *Cache) Invalidate(ctx context.Context, keys ...string) error {
	if c == nil || c.backend == nil || len(keys) == 0 {
		return nil
	}
	return c.backend.Del(ctx, keys...)
}

// InvalidatePattern deletes every key matching a glob pattern. It walks the
// keyspace with SCAN so the server is never blocked by a KEYS call.
func (c *Cache) InvalidatePattern(ctx context.Context, pattern string) (int, error) {
	if c == nil || c.backend == nil {
		return 0, nil
	}
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := c.backend.Scan(ctx, cursor, pattern, scanBatch)
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			if err := c.backend.Del(ctx, keys...); err != nil {
				return deleted, err
			}
			deleted += len(keys)
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

// InvalidateTarget resolves a logical domain name to its key patterns; any
// other target is deleted as an exact key.
func (c *Cache) InvalidateTarget(ctx context.Context, target string) (int, error) {
	patterns, ok := Targets[target]
	if !ok {
		if err := c.Invalidate(ctx, target); err != nil {
			return 0, err
		}
		return 1, nil
	}
	total := 0
	for _, p := range patterns {
		n, err := c.InvalidatePattern(ctx, p)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}
