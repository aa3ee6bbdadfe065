package dbtest

import (
	"context"
	"testing"

	"subscriptions-go/internal/config"
	"subscriptions-go/internal/logging"
)

// New provisions a database for t and drops it when t finishes, whether the
// test passed, failed, or panicked. Provisioning errors abort the test.
func New(t testing.TB, settings config.DatabaseSettings, logger *logging.ContextLogger, opts ...Option) *Database {
	t.Helper()

	db, err := NewProvisioner(settings, logger, opts...).Provision(context.Background())
	if err != nil {
		t.Fatalf("failed to provision test database: %v", err)
	}
	t.Cleanup(func() {
		db.Teardown(context.Background())
	})
	return db
}
