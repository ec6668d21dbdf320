package infrastructure

import (
	"github.com/redis/go-redis/v9"

	"github.com/gatebit/p2ptrader/internal/config"
)

// InitRedis creates the Redis client for the redis snapshot store.
func InitRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}
