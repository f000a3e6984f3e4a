package session

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"shopprotect/pkg/config"
)

// Open picks the backend named by cfg.Store. The postgres backend needs pool.
func Open(ctx context.Context, cfg config.SessionConfig, pool *pgxpool.Pool) (Storage, error) {
	switch cfg.Store {
	case "", "postgres":
		if pool == nil {
			return nil, fmt.Errorf("session: postgres store needs a database pool")
		}
		return NewPostgresStorage(pool), nil
	case "redis":
		return NewRedisStorage(ctx, cfg.RedisURL)
	case "memory":
		return NewMemoryStorage(), nil
	default:
		return nil, fmt.Errorf("session: unknown store %q", cfg.Store)
	}
}
