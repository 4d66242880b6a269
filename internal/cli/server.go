package cli

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quizleague/backend/internal/config"
	"github.com/quizleague/backend/internal/handler"
	"github.com/quizleague/backend/internal/kafka"
	"github.com/quizleague/backend/internal/memory"
	"github.com/quizleague/backend/internal/postgres"
	"github.com/quizleague/backend/internal/redis"
	"github.com/quizleague/backend/internal/service"
	"github.com/quizleague/backend/internal/websocket"
	"github.com/quizleague/backend/internal/worker"
)

// stores groups the persistence interfaces the services need, so the
// postgres repository and the in-memory fallback can be swapped wholesale.
type stores struct {
	leagues   service.LeagueStore
	users     service.UserStore
	events    service.EventStore
	questions service.QuestionStore
}

func newServeCmd(configPath *string, port *int) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath string, portFlag int) error {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}
	if portFlag > 0 {
		cfg.Server.Port = portFlag
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var st stores
	var repo *postgres.Repository
	if cfg.Postgres.Database != "" {
		logger.Info("connecting to PostgreSQL", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		repo, err = postgres.NewRepository(&cfg.Postgres, logger)
		if err != nil {
			return fmt.Errorf("connecting to postgres: %w", err)
		}
		defer repo.Close()

		if err := repo.RunMigrations(ctx); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		st = stores{leagues: repo, users: repo, events: repo, questions: repo}
	} else {
		logger.Warn("no postgres database configured, using in-memory store")
		mem := memory.NewStore()
		st = stores{leagues: mem, users: mem, events: mem, questions: mem}
	}

	var mirror *redis.ScoreMirror
	if cfg.Redis.Enabled {
		logger.Info("connecting to Redis", "addr", cfg.Redis.Addr)
		mirror, err = redis.NewScoreMirror(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("failed to connect to Redis, continuing without score mirror", "error", err)
			mirror = nil
		} else {
			defer mirror.Close()
		}
	}

	hub := websocket.NewHub(logger)
	go hub.Run()

	leagueService := service.NewLeagueService(st.leagues, logger)
	leaderboardService := service.NewLeaderboardService(st.users, &cfg.Leaderboard, logger)
	scoringService := service.NewScoringService(st.users, st.events, leaderboardService, logger)
	userService := service.NewUserService(st.users, logger)
	contentService := service.NewContentService(st.questions, logger)

	scoringService.SetHub(hub)
	if mirror != nil {
		scoringService.SetMirror(mirror)
		userService.SetMirror(mirror)
	}

	var syncWorker *worker.SyncWorker
	if repo != nil && mirror != nil {
		syncWorker = worker.NewSyncWorker(repo, mirror, &cfg.Sync, logger)
		logger.Info("syncing scores from database to Redis")
		if err := syncWorker.SyncOnce(ctx); err != nil {
			logger.Warn("failed to sync scores on startup", "error", err)
		}
		if cfg.Sync.Enabled {
			if err := syncWorker.Start(ctx); err != nil {
				return fmt.Errorf("starting sync worker: %w", err)
			}
		}
	}

	var consumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
		consumer, err = kafka.NewConsumer(&cfg.Kafka, scoringService, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else if err := consumer.Start(); err != nil {
			logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
			consumer = nil
		}
	}

	h := handler.NewHandler(
		leagueService,
		scoringService,
		leaderboardService,
		userService,
		contentService,
		hub,
		cfg.Auth.AdminAPIKey,
		cfg.Auth.TelegramBotToken,
		logger,
	)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	hub.Stop()
	if consumer != nil {
		if err := consumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}
	if syncWorker != nil {
		if err := syncWorker.Stop(); err != nil {
			logger.Error("failed to stop sync worker", "error", err)
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
