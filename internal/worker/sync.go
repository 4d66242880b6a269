package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quizleague/backend/internal/config"
	"github.com/quizleague/backend/internal/postgres"
	"github.com/quizleague/backend/internal/redis"
)

// SyncWorker periodically rebuilds the Redis score mirror from PostgreSQL.
// The database is authoritative; the mirror is only updated best-effort on
// each submission, so drift (missed updates, redis restarts) is repaired
// here.
type SyncWorker struct {
	repo    *postgres.Repository
	mirror  *redis.ScoreMirror
	config  *config.SyncConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
	mu      sync.Mutex
	running bool
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(
	repo *postgres.Repository,
	mirror *redis.ScoreMirror,
	cfg *config.SyncConfig,
	logger *slog.Logger,
) *SyncWorker {
	return &SyncWorker{
		repo:   repo,
		mirror: mirror,
		config: cfg,
		logger: logger,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start begins the background sync process
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("sync worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background sync process
func (w *SyncWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("sync worker stopped")
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.SyncOnce(ctx); err != nil {
				w.logger.Error("sync cycle failed", "error", err)
			}
		}
	}
}

// SyncOnce copies all cumulative scores and display names from the database
// into the mirror. Used on startup for recovery and by the periodic loop.
func (w *SyncWorker) SyncOnce(ctx context.Context) error {
	start := time.Now()

	scores, err := w.repo.AllScores(ctx)
	if err != nil {
		return err
	}
	if len(scores) == 0 {
		w.logger.Debug("no scores to sync")
		return nil
	}

	batchSize := w.config.BatchSize
	if batchSize == 0 {
		batchSize = 1000
	}

	batch := make(map[string]int64, batchSize)
	for userID, score := range scores {
		batch[userID] = score
		if len(batch) >= batchSize {
			if err := w.mirror.BatchSetScores(ctx, batch); err != nil {
				return err
			}
			batch = make(map[string]int64, batchSize)
		}
	}
	if len(batch) > 0 {
		if err := w.mirror.BatchSetScores(ctx, batch); err != nil {
			return err
		}
	}

	names, err := w.repo.AllDisplayNames(ctx)
	if err != nil {
		return err
	}
	if err := w.mirror.BatchSetDisplayNames(ctx, names); err != nil {
		return err
	}

	w.logger.Info("sync cycle completed",
		"duration", time.Since(start),
		"users", len(scores),
	)
	return nil
}
