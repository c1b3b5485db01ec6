package progress

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/seuros/studybuddy/internal/config"
)

// Open builds the backend selected by cfg.ProgressStore. db is required for the
// postgres backend. The returned closer releases backend resources.
func Open(ctx context.Context, cfg *config.Config, db *sql.DB) (Backend, func() error, error) {
	noop := func() error { return nil }
	switch cfg.ProgressStore {
	case config.ProgressFile, "":
		b, err := NewFileBackend(cfg.DataDir)
		return b, noop, err
	case config.ProgressRedis:
		b, err := NewRedisBackend(ctx, cfg.RedisURL)
		if err != nil {
			return nil, noop, err
		}
		return b, b.Close, nil
	case config.ProgressPostgres:
		if db == nil {
			return nil, noop, fmt.Errorf("progress store %q needs a database connection", cfg.ProgressStore)
		}
		return NewPGBackend(db), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown progress store %q", cfg.ProgressStore)
	}
}
