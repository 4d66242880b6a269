package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quizleague/backend/internal/config"
	"github.com/quizleague/backend/internal/domain"
)

// LeaderboardService computes ranks from cumulative scores. Nothing here is
// stored; every answer is a best-effort snapshot of the score distribution at
// query time.
type LeaderboardService struct {
	store  UserStore
	config *config.LeaderboardConfig
	logger *slog.Logger
}

// NewLeaderboardService creates a new leaderboard service
func NewLeaderboardService(store UserStore, cfg *config.LeaderboardConfig, logger *slog.Logger) *LeaderboardService {
	return &LeaderboardService{
		store:  store,
		config: cfg,
		logger: logger,
	}
}

// Rank returns the tie-aware rank for a cumulative score: the number of users
// with a strictly greater score, plus one. Users with equal scores share the
// same rank.
func (s *LeaderboardService) Rank(ctx context.Context, score int64) (int64, error) {
	higher, err := s.store.CountHigherScores(ctx, score)
	if err != nil {
		return 0, fmt.Errorf("counting higher scores: %w", err)
	}
	return higher + 1, nil
}

// Global returns up to limit leaderboard entries ordered by score descending.
// Ranks here are positional (1..k by listing order), not the tie-aware rule
// used by Rank; ties are numbered apart in store iteration order. The two
// formulas intentionally differ.
func (s *LeaderboardService) Global(ctx context.Context, limit int) ([]domain.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		limit = s.config.MaxLimit
	}

	users, err := s.store.TopUsers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing top users: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, len(users))
	for i := range users {
		u := &users[i]
		entries[i] = domain.LeaderboardEntry{
			ID:          u.TelegramID,
			UserName:    u.DisplayName(),
			GamePoints:  u.OverallScore,
			CurrentRank: int64(i + 1),
			AvatarURL:   u.AvatarURL,
		}
	}
	return entries, nil
}
