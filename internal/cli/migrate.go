package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/quizleague/backend/internal/config"
	"github.com/quizleague/backend/internal/postgres"
)

func newMigrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath)
		},
	}
}

func runMigrations(ctx context.Context, configPath string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.Database == "" {
		return fmt.Errorf("postgres database not configured")
	}

	repo, err := postgres.NewRepository(&cfg.Postgres, logger)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")
	return nil
}
