package store

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bookbot/internal/config"
	"bookbot/internal/db"
)

const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

// Open construye el backend indicado por STORE_DRIVER. El Store devuelto es
// dueño de las conexiones que abre.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver := strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	logger = logger.With(zap.String("store", driver))

	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile, "":
		return NewFile(cfg.StoreDir, logger)
	case DriverRedis:
		client, err := db.NewRedisClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return NewRedis(client, cfg.RedisPrefix, logger), nil
	case DriverPostgres:
		pool, err := db.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		st, err := NewPostgres(ctx, pool, logger)
		if err != nil {
			pool.Close()
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		st.ownsPool = true
		return st, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.StoreDriver)
	}
}
