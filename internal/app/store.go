package app

import (
	"fmt"

	"github.com/jaennil/guide_helper/backend/viewer/internal/repository/store"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/config"
	"github.com/jaennil/guide_helper/backend/viewer/pkg/logger"
)

const (
	backendMemory     = "memory"
	backendFilesystem = "filesystem"
	backendSQLite     = "sqlite"
	backendRedis      = "redis"
)

// newStore opens the settings store selected by cfg. The returned function
// releases it.
func newStore(cfg config.Settings, l logger.Logger) (store.Store, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case backendMemory:
		return store.NewMapStore(), noop, nil
	case backendFilesystem:
		s, err := store.NewFilesystemStore(cfg.Dir)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize filesystem store: %w", err)
		}
		return s, noop, nil
	case backendSQLite:
		s, err := store.NewSQLiteStore(cfg.SQLitePath, l)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize sqlite store: %w", err)
		}
		return s, s.Close, nil
	case backendRedis:
		s, err := store.NewRedisStore(store.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      cfg.RedisTTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize redis store: %w", err)
		}
		return s, s.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown settings backend %q", cfg.Backend)
}
