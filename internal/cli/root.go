// Package cli wires the studybuddy commands.
package cli

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seuros/studybuddy/internal/config"
	"github.com/seuros/studybuddy/internal/logging"
)

var Version string

// Flag overrides shared by every command.
var (
	flagDatabaseURL    string
	flagPort           string
	flagDataDir        string
	flagAnalyticsStore string
	flagProgressStore  string
)

// RootCmd represents the root command
var RootCmd = &cobra.Command{
	Use:   "studybuddy",
	Short: "Marketing funnel for a study buddy service",
	Long: `StudyBuddy - landing page, questionnaire and funnel analytics.

StudyBuddy serves the landing page and the onboarding questionnaire, records
funnel events and applications, and shows conversion figures on an admin
dashboard.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	// Default to serve command if no subcommand provided
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return runServe(cmd.Context())
		}
		return cmd.Help()
	},
}

// Execute is called by main
func Execute(version string) error {
	Version = version
	RootCmd.Version = version
	return RootCmd.Execute()
}

// loadDotEnv reads ./.env into the environment. Variables already set win.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.L().Warn("failed to load .env", zap.Error(err))
	}
}

func loadConfig() (*config.Config, error) {
	return config.LoadWithOverrides(config.Overrides{
		DatabaseURL:    flagDatabaseURL,
		Port:           flagPort,
		DataDir:        flagDataDir,
		AnalyticsStore: flagAnalyticsStore,
		ProgressStore:  flagProgressStore,
	})
}

func init() {
	cobra.OnInitialize(loadDotEnv)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&flagDatabaseURL, "database-url", "", "PostgreSQL connection string")
	flags.StringVar(&flagPort, "port", "", "HTTP port (default 3000)")
	flags.StringVar(&flagDataDir, "data-dir", "", "Directory for local analytics and progress files (default ./data)")
	flags.StringVar(&flagAnalyticsStore, "analytics-store", "", "Analytics store: local or postgres")
	flags.StringVar(&flagProgressStore, "progress-store", "", "Questionnaire progress store: file, redis or postgres")

	RootCmd.AddCommand(serveCmd)
	RootCmd.AddCommand(statsCmd)
	RootCmd.AddCommand(migrateCmd)
	RootCmd.AddCommand(adminCmd)
	RootCmd.AddCommand(healthcheckCmd)
	RootCmd.AddCommand(doctorCmd)

	setupSelfUpgrade()
}
