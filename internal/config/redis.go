package config

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// ConnectRedis returns a client even when the first ping fails; cache and
// rate limiting degrade gracefully while Redis is down.
func ConnectRedis(env Env) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:         env.RedisAddr,
		Password:     env.RedisPassword,
		DB:           env.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Printf("warning: redis ping failed (%s): %v", env.RedisAddr, err)
	} else {
		log.Printf("connected to Redis at %s", env.RedisAddr)
	}
	return rdb
}
