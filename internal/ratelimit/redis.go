package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow trims the sorted set to the window, adds the hit when there
// is room and returns {allowed, count, oldest score}. Scores are unix ms.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])
redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)
local count = redis.call('ZCARD', key)
local allowed = 0
if count < limit then
  redis.call('ZADD', key, now, ARGV[4])
  count = count + 1
  allowed = 1
end
redis.call('PEXPIRE', key, window)
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
local oldestScore = now
if oldest[2] then
  oldestScore = tonumber(oldest[2])
end
return {allowed, count, oldestScore}
`)

type RedisBackend struct {
	rdb redis.UniversalClient
}

func NewRedisBackend(rdb redis.UniversalClient) *RedisBackend {
	return &RedisBackend{rdb: rdb}
}

func (b *RedisBackend) Hit(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (WindowState, error) {
	if b == nil || b.rdb == nil {
		return WindowState{}, fmt.Errorf("redis client not configured")
	}
	res, err := slidingWindow.Run(ctx, b.rdb, []string{key},
		now.UnixMilli(), window.Milliseconds(), limit, uuid.NewString()).Int64Slice()
	if err != nil {
		return WindowState{}, err
	}
	if len(res) != 3 {
		return WindowState{}, fmt.Errorf("unexpected sliding window reply: %v", res)
	}
	return WindowState{
		Allowed:  res[0] == 1,
		Count:    int(res[1]),
		OldestAt: time.UnixMilli(res[2]),
	}, nil
}
