package cache

import (
	"fmt"
	"time"

	"github.com/Aman-CERP/evidencemcp/internal/config"
)

// NewStore builds the backend selected by cfg.Backend.
func NewStore(cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case "memory", "":
		return NewMemoryStore(cfg.MemoryEntries, config.Duration(cfg.TTL, DefaultTTL)), nil
	case "redis":
		return NewRedisStore(RedisConfig{
			Addr:        cfg.RedisAddr,
			Password:    cfg.RedisPassword,
			DB:          cfg.RedisDB,
			DialTimeout: config.Duration(cfg.OpTimeout, DefaultOpTimeout) * 2,
		}), nil
	case "sqlite":
		return NewSQLiteStore(cfg.SQLitePath)
	case "none":
		return NopStore{}, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// TTL returns the configured entry lifetime.
func TTL(cfg config.CacheConfig) time.Duration {
	return config.Duration(cfg.TTL, DefaultTTL)
}
