//go:build integration

package containers

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"

	"subscriptions-go/internal/config"
)

const (
	postgresImage    = "postgres:16-alpine"
	postgresUser     = "postgres"
	postgresPassword = "s3cr3t-pw"
	postgresDatabase = "newsletter"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	Settings  config.DatabaseSettings
}

// NewPostgresContainer starts a Postgres server and returns settings pointing
// at it. The container is terminated when t finishes.
func NewPostgresContainer(t testing.TB) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase(postgresDatabase),
		tcpostgres.WithUsername(postgresUser),
		tcpostgres.WithPassword(postgresPassword),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get postgres host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("failed to get postgres port: %v", err)
	}

	return &PostgresContainer{
		Container: container,
		Settings: config.DatabaseSettings{
			Username:              postgresUser,
			Password:              config.NewSecret(postgresPassword),
			Host:                  host,
			Port:                  port.Int(),
			DatabaseName:          postgresDatabase,
			MaxOpenConns:          10,
			ConnectTimeoutSeconds: 5,
		},
	}
}
