//go:build integration

package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Ramsey-B/parklink/db"
	"github.com/Ramsey-B/parklink/pkg/database"
)

// NewPostgresDB starts a postgres container and returns a migrated connection to it
func NewPostgresDB(t *testing.T) database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:15-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "user",
				"POSTGRES_PASSWORD": "password",
				"POSTGRES_DB":       "parklink",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	logger := NopLogger()
	conn, err := database.Open(ctx, database.Config{
		Driver:   database.DriverPostgres,
		Host:     host,
		Port:     port.Port(),
		User:     "user",
		Password: "password",
		Name:     "parklink",
		SSLMode:  "disable",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		Embedded: db.Migrations,
	})
	require.NoError(t, migrations.Migrate(conn))

	return conn
}
