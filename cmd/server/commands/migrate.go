package commands

import (
	"fmt"

	"github.com/anonto42/socialfeed/backend/internal/repositories"
	"github.com/anonto42/socialfeed/backend/pkg/config"
	"github.com/anonto42/socialfeed/backend/pkg/logger"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the PostgreSQL schema",
	Long: `Creates or updates the users, comments, likes, comment_likes and notifications
tables, including the comment cascade and the notification dedupe index.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.PostgresConnStr == "" {
			return fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
		}
		db, err := config.InitPostgres(cfg.PostgresConnStr)
		if err != nil {
			return err
		}
		defer (&config.DB{Postgres: db}).CloseDB()

		if err := repositories.AutoMigrate(db); err != nil {
			return fmt.Errorf("auto migrate: %w", err)
		}
		logger.Log.Info("migrations applied")
		return nil
	},
}
