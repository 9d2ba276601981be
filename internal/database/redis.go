package database

import (
	"context"

	"profilephoto-backend/config"

	"github.com/go-redis/redis/v8"
)

// RedisClient backs the generation queue and the token denylist.
var (
	RedisClient *redis.Client
	Ctx         = context.Background()
)

// ConnectRedis dials redis and verifies the connection with a ping.
func ConnectRedis(cfg *config.Config) error {
	RedisClient = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisFullAddr(),
		Password: cfg.RedisPassword,
	})
	return RedisClient.Ping(Ctx).Err()
}
