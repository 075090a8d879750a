package config

import (
	"github.com/redis/go-redis/v9"
)

// NewRedis returns a client for the configured address, or nil when redis
// is not configured. The client connects lazily.
func NewRedis(c RedisConfig) *redis.Client {
	if c.Addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Pass,
		DB:       c.DB,
	})
}
