package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yamdb/auth"
	"yamdb/config"
	"yamdb/logging"
)

var logger = zap.NewNop()

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "yamdb",
	Short: "YaMDb - reviews and ratings of films, books and music",
	Long: `YaMDb collects user reviews of titles (films, books, music) and
exposes titles with their average score over a REST API and a small gRPC API.

Configuration is read from config.yaml (in . or ./config), .env and
YAMDB_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		config.AppConfig = cfg

		logger = logging.NewLogger(cfg.LogLevel)
		if cfg.UsesDefaultSecret() {
			logger.Warn("Using default insecure JWT secret key, set auth.jwt_secret")
		}
		auth.Configure(cfg.Auth.JwtSecret, cfg.Auth.Issuer, cfg.Auth.AccessTTL)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
