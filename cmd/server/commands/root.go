package commands

import (
	"fmt"
	"os"

	"github.com/anonto42/socialfeed/backend/pkg/config"
	"github.com/anonto42/socialfeed/backend/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	envFile string

	cfg *config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "socialfeed",
	Short: "Social feed API server",
	Long: `socialfeed serves the social feed HTTP API: walls, posts, threaded comments,
likes, mentions and notifications.

Configuration comes from the environment, optionally seeded from a .env file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if envFile != "" {
			if err := loadEnvFile(envFile); err != nil {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
		}
		cfg = config.Load()
		logger.Init(cfg.LogLevel, cfg.Env)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Extra .env file to load before the environment")
	rootCmd.AddCommand(serveCmd, migrateCmd)
}
