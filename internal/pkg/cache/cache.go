package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/focusgate/focusgate-server/internal/pkg/env"
)

var (
	client *redis.Client
	ctx    = context.Background()
)

// SetupCache initializes the redis connection shared by OTP storage, the
// geoip cache and the webhook counters.
func SetupCache() {
	host := env.GetEnv("CACHE_HOST", "localhost")
	port := env.GetEnv("CACHE_PORT", "6379")

	client = redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		DB:       0, // use default DB
	})

	// Test the connection
	pong, err := client.Ping(ctx).Result()
	if err != nil {
		log.Warnf("Could not connect to redis cache: %v", err)
	} else {
		log.Infof("Successfully connected to redis cache: %s", pong)
	}
}

// GetClient returns the Redis client instance
func GetClient() *redis.Client {
	if client == nil {
		SetupCache()
	}
	return client
}

// Set stores a value in the cache with the given key and expiration time
func Set(key string, value interface{}, expiration time.Duration) error {
	return GetClient().Set(ctx, key, value, expiration).Err()
}

// Get retrieves a value from the cache by key
func Get(key string) (string, error) {
	return GetClient().Get(ctx, key).Result()
}

// GetDel retrieves a value and removes it in one round trip. Used for
// one-time codes so a verified OTP can never be replayed.
func GetDel(key string) (string, error) {
	return GetClient().GetDel(ctx, key).Result()
}

// Incr increments a counter key and returns the new value.
func Incr(key string) (int64, error) {
	return GetClient().Incr(ctx, key).Result()
}

// Expire sets a TTL on an existing key.
func Expire(key string, expiration time.Duration) error {
	return GetClient().Expire(ctx, key, expiration).Err()
}

// Delete removes a value from the cache by key
func Delete(key string) error {
	return GetClient().Del(ctx, key).Err()
}
