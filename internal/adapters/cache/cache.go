// Package cache holds the LocalCache drivers.
package cache

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/taskmaster/tasksync/internal/infrastructure/config"
	"github.com/taskmaster/tasksync/internal/ports"
)

const lockRetryDelay = 20 * time.Millisecond

// Store is a LocalCache that holds resources
type Store interface {
	ports.LocalCache
	io.Closer
}

// New opens the driver selected in cfg
func New(ctx context.Context, cfg config.CacheConfig, redisCfg config.RedisConfig) (Store, error) {
	switch cfg.Driver {
	case config.CacheDriverSQLite:
		return OpenSQLite(cfg.Path)
	case config.CacheDriverRedis:
		return OpenRedis(ctx, RedisOptions{
			Addr:     redisCfg.GetAddr(),
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		})
	case config.CacheDriverFile:
		return OpenFile(cfg.Path)
	case config.CacheDriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown cache driver %q", cfg.Driver)
	}
}
