package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yamdb/config"
	"yamdb/database"
)

// migrateCmd creates or updates the schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Long: `Create or update the tables of every model in the configured database.

Examples:
  yamdb migrate
  YAMDB_DATABASE_DRIVER=postgres YAMDB_DATABASE_URL=postgres://... yamdb migrate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(config.AppConfig.Database, logger)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		logger.Info("Migrations complete", zap.String("driver", config.AppConfig.Database.Driver))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
