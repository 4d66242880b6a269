package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quizleague/backend/internal/config"
	"github.com/quizleague/backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

const globalScoresKey = "leaderboard:global:realtime"

// ScoreMirror keeps a realtime copy of cumulative scores in a Redis sorted
// set, alongside a small display-name cache. PostgreSQL stays authoritative;
// the mirror only feeds live websocket reads and is reconciled by the sync
// worker.
type ScoreMirror struct {
	client *redis.Client
	logger *slog.Logger
}

// NewScoreMirror creates a new Redis score mirror
func NewScoreMirror(cfg *config.RedisConfig, logger *slog.Logger) (*ScoreMirror, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &ScoreMirror{
		client: client,
		logger: logger,
	}, nil
}

// NewScoreMirrorWithClient wraps an existing client (used by tests).
func NewScoreMirrorWithClient(client *redis.Client, logger *slog.Logger) *ScoreMirror {
	return &ScoreMirror{client: client, logger: logger}
}

// Close closes the Redis connection
func (m *ScoreMirror) Close() error {
	return m.client.Close()
}

func nameKey(userID string) string {
	return fmt.Sprintf("user:%s:name", userID)
}

// SetScore records a user's authoritative cumulative score in the mirror
func (m *ScoreMirror) SetScore(ctx context.Context, userID string, score int64) error {
	err := m.client.ZAdd(ctx, globalScoresKey, redis.Z{
		Score:  float64(score),
		Member: userID,
	}).Err()
	if err != nil {
		return fmt.Errorf("setting score: %w", err)
	}
	return nil
}

// BatchSetScores writes multiple scores using pipelining
func (m *ScoreMirror) BatchSetScores(ctx context.Context, scores map[string]int64) error {
	if len(scores) == 0 {
		return nil
	}
	pipe := m.client.Pipeline()
	for userID, score := range scores {
		pipe.ZAdd(ctx, globalScoresKey, redis.Z{
			Score:  float64(score),
			Member: userID,
		})
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("batch setting scores: %w", err)
	}
	return nil
}

// SetDisplayName caches a user's resolved display name
func (m *ScoreMirror) SetDisplayName(ctx context.Context, userID, name string) error {
	err := m.client.Set(ctx, nameKey(userID), name, 0).Err()
	if err != nil {
		return fmt.Errorf("setting display name: %w", err)
	}
	return nil
}

// BatchSetDisplayNames caches multiple display names using pipelining
func (m *ScoreMirror) BatchSetDisplayNames(ctx context.Context, names map[string]string) error {
	if len(names) == 0 {
		return nil
	}
	pipe := m.client.Pipeline()
	for userID, name := range names {
		pipe.Set(ctx, nameKey(userID), name, 0)
	}
	_, err := pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("batch setting display names: %w", err)
	}
	return nil
}

// TopN returns the top n mirrored entries in score-descending order with
// positional ranks, resolving cached display names where available
func (m *ScoreMirror) TopN(ctx context.Context, n int) ([]domain.LeaderboardEntry, error) {
	results, err := m.client.ZRevRangeWithScores(ctx, globalScoresKey, 0, int64(n-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("getting top n: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, len(results))
	for i, result := range results {
		userID := result.Member.(string)
		entries[i] = domain.LeaderboardEntry{
			ID:          userID,
			UserName:    fmt.Sprintf("user_%s", userID),
			GamePoints:  int64(result.Score),
			CurrentRank: int64(i + 1),
		}
	}

	if len(entries) > 0 {
		pipe := m.client.Pipeline()
		cmds := make([]*redis.StringCmd, len(entries))
		for i := range entries {
			cmds[i] = pipe.Get(ctx, nameKey(entries[i].ID))
		}
		if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
			return nil, fmt.Errorf("resolving display names: %w", err)
		}
		for i, cmd := range cmds {
			if name, err := cmd.Result(); err == nil && name != "" {
				entries[i].UserName = name
			}
		}
	}
	return entries, nil
}

// Count returns the number of mirrored users
func (m *ScoreMirror) Count(ctx context.Context) (int64, error) {
	count, err := m.client.ZCard(ctx, globalScoresKey).Result()
	if err != nil {
		return 0, fmt.Errorf("getting count: %w", err)
	}
	return count, nil
}
