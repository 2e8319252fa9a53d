package db

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"bookbot/internal/config"
)

var ErrNoRedisAddr = errors.New("db: REDIS_ADDR is empty")

// NewRedisClient abre el cliente de Redis y verifica que responda.
func NewRedisClient(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.RedisAddr == "" {
		return nil, ErrNoRedisAddr
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
