// Package dbtest provisions throwaway Postgres databases so every test run
// works against its own freshly migrated schema.
package dbtest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"subscriptions-go/internal/config"
	"subscriptions-go/internal/database"
	"subscriptions-go/internal/logging"
)

// ProvisioningError means the test database could not be created or
// migrated. A test run cannot continue past it.
type ProvisioningError struct {
	Step string
	Err  error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Step, e.Err)
}

func (e *ProvisioningError) Unwrap() error {
	return e.Err
}

type (
	openFunc    func(dsn config.Secret) (*sql.DB, error)
	migrateFunc func(dsn config.Secret) error
	nameFunc    func() string
)

type Option func(*Provisioner)

// WithOpener replaces how pools are opened; tests use it to inject sqlmock.
func WithOpener(open func(dsn config.Secret) (*sql.DB, error)) Option {
	return func(p *Provisioner) { p.open = open }
}

func WithMigrator(migrate func(dsn config.Secret) error) Option {
	return func(p *Provisioner) { p.migrate = migrate }
}

type Provisioner struct {
	settings config.DatabaseSettings
	logger   *logging.ContextLogger
	open     openFunc
	migrate  migrateFunc
	newName  nameFunc
}

func NewProvisioner(settings config.DatabaseSettings, logger *logging.ContextLogger, opts ...Option) *Provisioner {
	p := &Provisioner{
		settings: settings,
		logger:   logger,
		open:     database.Connect,
		migrate:  database.Migrate,
		newName:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Database is a provisioned, migrated database and the pool scoped to it.
type Database struct {
	Name     string
	Settings config.DatabaseSettings
	Pool     *sql.DB

	provisioner *Provisioner
}

// Provision creates a uniquely named database, migrates it, and returns a pool
// connected to it. If migration fails the database is dropped again.
func (p *Provisioner) Provision(ctx context.Context) (*Database, error) {
	name := p.newName()
	settings := p.settings.WithDatabaseName(name)

	if err := p.createDatabase(ctx, settings); err != nil {
		return nil, err
	}

	pool, err := p.open(settings.ConnectionString())
	if err != nil {
		p.dropDatabase(ctx, settings)
		return nil, &ProvisioningError{Step: "connect to test database", Err: err}
	}
	if err := pool.PingContext(ctx); err != nil {
		_ = pool.Close()
		p.dropDatabase(ctx, settings)
		return nil, &ProvisioningError{Step: "connect to test database", Err: err}
	}

	if err := p.migrate(settings.ConnectionString()); err != nil {
		_ = pool.Close()
		p.dropDatabase(ctx, settings)
		return nil, &ProvisioningError{Step: "migrate test database", Err: err}
	}

	p.logger.WithTracing(ctx).WithField("database_name", name).Debug("Provisioned test database")

	return &Database{
		Name:        name,
		Settings:    settings,
		Pool:        pool,
		provisioner: p,
	}, nil
}

func (p *Provisioner) createDatabase(ctx context.Context, settings config.DatabaseSettings) error {
	server, err := p.open(settings.ConnectionStringWithoutDB())
	if err != nil {
		return &ProvisioningError{Step: "connect to database server", Err: err}
	}
	defer server.Close()

	stmt := fmt.Sprintf(`CREATE DATABASE %s`, pq.QuoteIdentifier(settings.DatabaseName))
	if _, err := server.ExecContext(ctx, stmt); err != nil {
		return &ProvisioningError{Step: "create test database", Err: err}
	}
	return nil
}

// Teardown closes the pool and drops the database. It never fails: a database
// left behind is logged and otherwise ignored.
func (d *Database) Teardown(ctx context.Context) {
	if err := d.Pool.Close(); err != nil {
		d.provisioner.logger.WithTracing(ctx).WithError(err).WithField("database_name", d.Name).
			Warn("Failed to close test database pool")
	}
	d.provisioner.dropDatabase(ctx, d.Settings)
}

func (p *Provisioner) dropDatabase(ctx context.Context, settings config.DatabaseSettings) {
	log := p.logger.WithTracing(ctx).WithField("database_name", settings.DatabaseName)

	server, err := p.open(settings.ConnectionStringWithoutDB())
	if err != nil {
		log.WithError(err).Warn("Failed to connect to database server for teardown")
		return
	}
	defer server.Close()

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if _, err := server.ExecContext(ctx,
		`SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = $1 AND pid <> pg_backend_pid()`,
		settings.DatabaseName,
	); err != nil {
		log.WithError(err).Warn("Failed to terminate test database connections")
	}

	stmt := fmt.Sprintf(`DROP DATABASE IF EXISTS %s`, pq.QuoteIdentifier(settings.DatabaseName))
	if _, err := server.ExecContext(ctx, stmt); err != nil {
		log.WithError(err).Warn("Failed to drop test database")
		return
	}
	log.WithFields(logrus.Fields{"dropped": true}).Debug("Dropped test database")
}
