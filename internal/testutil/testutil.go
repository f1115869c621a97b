// Package testutil builds the loggers and databases shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/parklink/db"
	"github.com/Ramsey-B/parklink/pkg/database"
)

// NopLogger discards every log message
func NopLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// NewSQLiteDB returns a migrated in-memory database that is closed with the test
func NewSQLiteDB(t *testing.T) database.DB {
	t.Helper()

	logger := NopLogger()
	conn, err := database.Open(context.Background(), database.Config{
		Driver: database.DriverSQLite,
		Path:   ":memory:",
	}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		Embedded: db.Migrations,
	})
	require.NoError(t, migrations.Migrate(conn))

	return conn
}

// Ptr returns a pointer to v
func Ptr[T any](v T) *T {
	return &v
}
