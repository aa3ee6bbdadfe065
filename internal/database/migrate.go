package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"subscriptions-go/internal/config"
	"subscriptions-go/migrations"
)

// Migrate applies every pending embedded migration to the database addressed
// by dsn. It returns nil when the schema is already current.
func Migrate(dsn config.Secret) error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return fmt.Errorf("failed to load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn.Expose())
	if err != nil {
		return fmt.Errorf("failed to initialise migrator: %w", redact(err, dsn))
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to apply migrations: %w", redact(err, dsn))
	}
	return nil
}
