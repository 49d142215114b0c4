package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"yamdb/config"
	"yamdb/database"
)

var (
	// Createsuperuser flags
	suUsername string
	suEmail    string
	suPassword string
)

var createSuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create or promote a superuser",
	Long: `Create an active superuser with role admin, or promote the account
that already has this username and email. The superuser signs up and
exchanges a confirmation code like everyone else to obtain a token.

Examples:
  yamdb createsuperuser --username root --email root@example.com`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if suUsername == "" || suEmail == "" {
			return errors.New("--username and --email are required")
		}
		db, err := database.Open(config.AppConfig.Database, logger)
		if err != nil {
			return err
		}
		if err := database.Migrate(db); err != nil {
			return err
		}
		user, err := database.EnsureSuperuser(db, suUsername, suEmail, suPassword)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Superuser %q ready (id %d)\n", user.Username, user.ID)
		return nil
	},
}

func init() {
	createSuperuserCmd.Flags().StringVar(&suUsername, "username", "", "Username of the superuser")
	createSuperuserCmd.Flags().StringVar(&suEmail, "email", "", "Email of the superuser")
	createSuperuserCmd.Flags().StringVar(&suPassword, "password", "", "Optional password, stored as a bcrypt hash")
	rootCmd.AddCommand(createSuperuserCmd)
}
