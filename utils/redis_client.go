package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/avolkov/inkwell/config"
)

var (
	redisClient    *redis.Client
	redisOnce      sync.Once
	redisAlive     bool
	redisAliveOnce sync.Once
)

// GetRedis returns a singleton Redis client based on loaded config.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		cfg := config.Get()
		redisClient = redis.NewClient(&redis.Options{
			Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})
	})
	return redisClient
}

// RedisAvailable reports whether Redis answered a ping at first use. Callers
// that have an in-memory fallback use this to pick a backend once.
func RedisAvailable() bool {
	redisAliveOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		redisAlive = GetRedis().Ping(ctx).Err() == nil
	})
	return redisAlive
}
