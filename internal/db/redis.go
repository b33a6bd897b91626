package db

import (
	"context"

	"github.com/akulinin/mediascore/pkg/logger"
	"github.com/akulinin/mediascore/pkg/utils"
	"github.com/redis/go-redis/v9"
)

// RedisClient wraps the go-redis client. A nil *RedisClient is a valid
// "caching disabled" value; callers must check before use.
type RedisClient struct {
	*redis.Client
}

// NewRedis initializes a Redis client with context.
func NewRedis(ctx context.Context, addr, password string) (*RedisClient, error) {
	if err := ctx.Err(); err != nil {
		return nil, utils.WrapError(err, utils.ErrInternalServerError.Code, "redis initialization canceled")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, utils.NewError(utils.ErrInternalServerError.Code, "Failed to connect to Redis", err.Error())
	}

	return &RedisClient{client}, nil
}

// Close shuts down the Redis connection.
func (r *RedisClient) Close(log *logger.Logger) error {
	if r == nil {
		return nil
	}
	if err := r.Client.Close(); err != nil {
		log.Error(context.Background()).WithMeta(utils.Map{"error": err.Error()}).Logs("Redis close failed")
		return utils.NewError(utils.ErrInternalServerError.Code, "Failed to close Redis", err.Error())
	}
	log.Info(context.Background()).Logs("Redis connection closed successfully")
	return nil
}
