package main

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/parklink/config"
	"github.com/Ramsey-B/parklink/db"
	"github.com/Ramsey-B/parklink/pkg/database"
)

func loadConfig() (*config.Config, error) {
	if envFile != "" {
		return config.Load(envFile)
	}
	return config.Load()
}

func databaseConfig(cfg *config.Config) database.Config {
	return database.Config{
		Driver:          cfg.DatabaseDriver,
		Host:            cfg.DatabaseHost,
		Port:            cfg.DatabasePort,
		User:            cfg.DatabaseUserName,
		Password:        cfg.DatabasePassword,
		Name:            cfg.DatabaseName,
		SSLMode:         cfg.DatabaseSSLMode,
		Path:            cfg.DatabasePath,
		MaxOpenConns:    cfg.DatabaseMaxOpenConns,
		MaxIdleConns:    cfg.DatabaseMaxIdleConns,
		ConnMaxLifetime: cfg.DatabaseConnMaxLifetime,
	}
}

func migrationService(cfg *config.Config, logger ectologger.Logger) *database.MigrationService {
	version := uint(0)
	if cfg.DatabaseMigrationVersion > 0 {
		version = uint(cfg.DatabaseMigrationVersion)
	}
	return database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: cfg.DatabaseMigrationFolderPath,
		Embedded:            db.Migrations,
		Version:             version,
		Force:               cfg.DatabaseMigrationForce,
		AutoRollback:        cfg.DatabaseMigrationAutoRollback,
	})
}

// openMigratedDatabase opens the configured database and brings its schema up to date
func openMigratedDatabase(ctx context.Context, cfg *config.Config, logger ectologger.Logger) (database.DB, error) {
	conn, err := database.Open(ctx, databaseConfig(cfg), logger)
	if err != nil {
		return nil, err
	}
	if err := migrationService(cfg, logger).Migrate(conn); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return conn, nil
}
