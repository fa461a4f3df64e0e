package ratelimit

import (
	"net"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/storage/redis"

	"github.com/focusgate/focusgate-server/internal/pkg/cache"
	"github.com/focusgate/focusgate-server/internal/pkg/env"
)

var limiterStorage fiber.Storage

// NewStorage creates the Redis-backed storage used by the rate limiter so
// counters survive restarts and are shared between replicas.
func NewStorage() fiber.Storage {
	// Reuse the Redis connection details from the cache setup
	cacheClient := cache.GetClient()
	host := "localhost"
	port := 6379
	password := env.GetEnv("CACHE_PASSWORD", "")
	if cacheClient != nil {
		addr := cacheClient.Options().Addr
		if h, p, err := net.SplitHostPort(addr); err == nil {
			host = h
			if v, err := strconv.Atoi(p); err == nil {
				port = v
			}
		}
		if p := cacheClient.Options().Password; p != "" {
			password = p
		}
	}

	// Limiter counters live in database 1 (cache uses DB 0)
	limiterStorage = redis.New(redis.Config{
		Host:     host,
		Port:     port,
		Password: password,
		Database: 1,
		Reset:    false,
	})

	return limiterStorage
}

// Storage returns the shared limiter storage, creating it on first use.
func Storage() fiber.Storage {
	if limiterStorage == nil {
		return NewStorage()
	}
	return limiterStorage
}

// New returns a limiter middleware allowing max requests per window,
// keyed by client IP.
func New(max int, window time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		Storage:    Storage(),
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate_limited",
			})
		},
	})
}
