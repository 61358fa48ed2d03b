package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-redis/redis/v8"

	"github.com/roach88/epcr/internal/config"
)

// OpenMedium opens the medium selected by cfg.Driver.
func OpenMedium(ctx context.Context, cfg config.Storage) (Medium, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("open sqlite medium: %w", err)
			}
		}
		s, err := Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite medium: %w", err)
		}
		return s, nil

	case config.DriverMemory:
		return NewMemory(), nil

	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("open redis medium: %w", err)
		}
		return NewRedis(client, cfg.Redis.Key), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
