package main

import (
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/parklink/pkg/database"
)

var migrateCommand = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations for the configured driver",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger, flush, err := newLogger(cfg)
		if err != nil {
			return err
		}
		defer flush()

		conn, err := database.Open(cmd.Context(), databaseConfig(cfg), logger)
		if err != nil {
			return err
		}
		defer conn.Close()

		return migrationService(cfg, logger).Migrate(conn)
	},
}

func init() {
	rootCmd.AddCommand(migrateCommand)
}
