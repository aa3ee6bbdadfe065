package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"subscriptions-go/internal/config"
)

const driverName = "postgres"

// Open builds the connection pool for settings. sql.Open is lazy, so the
// server does not have to be reachable yet.
func Open(settings config.DatabaseSettings) (*sql.DB, error) {
	db, err := Connect(settings.ConnectionString())
	if err != nil {
		return nil, err
	}

	if settings.MaxOpenConns > 0 {
		db.SetMaxOpenConns(settings.MaxOpenConns)
		db.SetMaxIdleConns(settings.MaxOpenConns)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// Connect opens a pool for a raw DSN.
func Connect(dsn config.Secret) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn.Expose())
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres pool: %w", err)
	}
	return db, nil
}

// Ping verifies the pool can reach the server within timeout.
func Ping(ctx context.Context, db *sql.DB, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to reach postgres: %w", err)
	}
	return nil
}
