// Package database owns the shared PostgreSQL handle and its schema.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/seuros/studybuddy/internal/logging"
)

// DB is the process-wide connection pool, set by Connect.
var DB *sql.DB

// ErrNoDatabaseURL is returned by Connect when no URL is configured.
var ErrNoDatabaseURL = errors.New("database URL not set")

// Connect opens the pool through the pgx driver and verifies it with a ping.
func Connect(databaseURL string) error {
	if databaseURL == "" {
		return ErrNoDatabaseURL
	}
	if !strings.HasPrefix(databaseURL, "postgres://") && !strings.HasPrefix(databaseURL, "postgresql://") {
		return fmt.Errorf("unsupported database URL scheme in %q", redact(databaseURL))
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	DB = db
	logging.L().Info("database connected", zap.String("url", redact(databaseURL)))
	return nil
}

// Close releases the pool. It is safe to call without a connection.
func Close() error {
	if DB == nil {
		return nil
	}
	err := DB.Close()
	DB = nil
	return err
}

// redact hides the password component of a connection URL for logs.
func redact(databaseURL string) string {
	at := strings.LastIndex(databaseURL, "@")
	scheme := strings.Index(databaseURL, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return databaseURL
	}
	creds := databaseURL[scheme+3 : at]
	if colon := strings.Index(creds, ":"); colon >= 0 {
		return databaseURL[:scheme+3] + creds[:colon] + ":***" + databaseURL[at:]
	}
	return databaseURL
}
