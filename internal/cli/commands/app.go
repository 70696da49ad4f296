package commands

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/conduit-lang/dataservice/internal/cli/config"
	ormquery "github.com/conduit-lang/dataservice/internal/orm/query"
	"github.com/conduit-lang/dataservice/internal/orm/schema"
	"github.com/conduit-lang/dataservice/internal/web/cache"
	"go.uber.org/zap"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
)

// openDatabase opens the configured database and returns the matching dialect.
// The connection is not verified until first use.
func openDatabase(cfg config.DatabaseConfig) (*sql.DB, ormquery.Dialect, error) {
	dialect, err := ormquery.DialectFor(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, dialect, nil
}

// loadSchemas reads the models file named by the config
func loadSchemas(cfg *config.Config) (*schema.Registry, error) {
	schemas, err := schema.LoadFile(cfg.Models.Path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.Models.Path, err)
	}
	return schemas, nil
}

// openCache returns the configured response cache, or nil when caching is off
func openCache(ctx context.Context, cfg config.CacheConfig, logger *zap.Logger) (cache.Cache, error) {
	base := cache.DefaultConfig()
	if cfg.TTL > 0 {
		base.DefaultTTL = cfg.TTL
	}

	switch cfg.Backend {
	case config.CacheMemory:
		logger.Info("response cache enabled", zap.String("backend", cfg.Backend), zap.Duration("ttl", base.DefaultTTL))
		return cache.NewMemoryCache(base), nil
	case config.CacheRedis:
		rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{Addr: cfg.RedisAddr, Config: base})
		if err != nil {
			return nil, err
		}
		logger.Info("response cache enabled", zap.String("backend", cfg.Backend), zap.String("addr", cfg.RedisAddr))
		return rc, nil
	default:
		return nil, nil
	}
}
