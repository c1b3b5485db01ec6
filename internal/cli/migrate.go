package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/seuros/studybuddy/internal/database"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the PostgreSQL schema",
	Long: `Apply, roll back or inspect the embedded database migrations.

The schema is only needed when the analytics or progress store is postgres.`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := migrationURL()
		if err != nil {
			return err
		}
		if err := database.RunMigrations(url); err != nil {
			return err
		}
		fmt.Println("✓ Migrations completed")
		return nil
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default: 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}
		url, err := migrationURL()
		if err != nil {
			return err
		}
		if err := database.RollbackMigrations(url, steps); err != nil {
			return err
		}
		fmt.Printf("✓ Rolled back %d migration(s)\n", steps)
		return nil
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the applied schema version",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, err := migrationURL()
		if err != nil {
			return err
		}
		version, dirty, err := database.GetMigrationVersion(url)
		if err != nil {
			return err
		}
		latest, err := database.LatestMigrationVersion()
		if err != nil {
			return err
		}
		fmt.Printf("Schema version: %d (latest %d)", version, latest)
		if dirty {
			fmt.Print(" [dirty]")
		}
		fmt.Println()
		return nil
	},
}

// migrationURL resolves the database URL without requiring a postgres store to be
// selected, so the schema can be prepared before switching.
func migrationURL() (string, error) {
	if flagDatabaseURL != "" {
		return flagDatabaseURL, nil
	}
	cfg, err := loadConfig()
	if err != nil {
		return "", err
	}
	if cfg.DatabaseURL == "" {
		return "", database.ErrNoDatabaseURL
	}
	return cfg.DatabaseURL, nil
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
}
