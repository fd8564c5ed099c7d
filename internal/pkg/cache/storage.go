package cache

import (
	"net"
	"strconv"

	"github.com/gofiber/storage/redis"

	"github.com/sodiqbhoy1/wears/internal/pkg/env"
)

// limiterDatabase keeps rate limiter counters away from the job queue keys in DB 0.
const limiterDatabase = 1

// NewLimiterStorage returns fiber storage on the configured Redis server for
// the rate limiter middleware.
func NewLimiterStorage() *redis.Storage {
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if c := GetClient(); c != nil {
		if h, p, err := net.SplitHostPort(c.Options().Addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := c.Options().Password; p != "" {
			password = p
		}
	}

	return redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: limiterDatabase,
		Reset:    false,
	})
}
