package services

import (
	"errors"
	"time"

	"profilephoto-backend/internal/database"

	"github.com/go-redis/redis/v8"
)

// Revoked JWTs are parked in redis until they would have expired anyway, so
// logout takes effect immediately without keeping token state in the database.
const denylistPrefix = "denylist:"

func AddToDenylist(tokenString string, ttl time.Duration) error {
	return database.RedisClient.Set(database.Ctx, denylistPrefix+tokenString, 1, ttl).Err()
}

func IsDenylisted(tokenString string) (bool, error) {
	err := database.RedisClient.Get(database.Ctx, denylistPrefix+tokenString).Err()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
