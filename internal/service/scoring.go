package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quizleague/backend/internal/domain"
)

// ScoringService records score events and maintains cumulative scores
type ScoringService struct {
	users       UserStore
	events      EventStore
	leaderboard *LeaderboardService
	mirror      ScoreMirror
	hub         Broadcaster
	logger      *slog.Logger
}

// NewScoringService creates a new scoring service
func NewScoringService(users UserStore, events EventStore, leaderboard *LeaderboardService, logger *slog.Logger) *ScoringService {
	return &ScoringService{
		users:       users,
		events:      events,
		leaderboard: leaderboard,
		logger:      logger,
	}
}

// SetMirror attaches the realtime score mirror for best-effort updates.
func (s *ScoringService) SetMirror(mirror ScoreMirror) {
	s.mirror = mirror
}

// SetHub attaches the broadcaster used to push leaderboard updates.
func (s *ScoringService) SetHub(hub Broadcaster) {
	s.hub = hub
}

// Submit appends an immutable score event, then atomically increments the
// user's cumulative score. The two writes are independent: an increment
// failure leaves the event recorded, which is accepted and logged rather
// than rolled back. The response carries the re-read authoritative score and
// the tie-aware rank computed from it.
func (s *ScoringService) Submit(ctx context.Context, sub domain.ScoreSubmission) (*domain.SubmitResult, error) {
	if sub.UserID == "" {
		return nil, domain.ErrInvalidRequest
	}

	event := domain.ScoreEvent{
		UserID:    sub.UserID,
		QuizID:    sub.QuizID,
		Points:    sub.Points,
		Correct:   sub.Correct,
		Answered:  sub.Answered,
		Timestamp: time.Now(),
	}
	if err := s.events.RecordEvent(ctx, event); err != nil {
		return nil, fmt.Errorf("recording score event: %w", err)
	}

	if _, err := s.users.IncrementScore(ctx, sub.UserID, sub.Points); err != nil {
		// The event above stays recorded; the score update is the part
		// that failed.
		s.logger.Error("score increment failed after event recorded",
			"user_id", sub.UserID,
			"quiz_id", sub.QuizID,
			"error", err,
		)
		return nil, fmt.Errorf("incrementing score: %w", err)
	}

	user, err := s.users.GetUser(ctx, sub.UserID)
	if err != nil {
		return nil, fmt.Errorf("reading score after increment: %w", err)
	}

	rank, err := s.leaderboard.Rank(ctx, user.OverallScore)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, user)

	return &domain.SubmitResult{
		OverallScore: user.OverallScore,
		Rank:         rank,
	}, nil
}

// SubmitBatch submits multiple scores, continuing past individual failures.
func (s *ScoringService) SubmitBatch(ctx context.Context, batch domain.BatchScoreSubmission) error {
	for _, sub := range batch.Scores {
		if _, err := s.Submit(ctx, sub); err != nil {
			s.logger.Error("failed to submit score in batch",
				"user_id", sub.UserID,
				"quiz_id", sub.QuizID,
				"error", err,
			)
		}
	}
	return nil
}

// publish pushes the new score to the realtime mirror and broadcasts a fresh
// top-10 snapshot to websocket clients. Both are best-effort.
func (s *ScoringService) publish(ctx context.Context, user *domain.User) {
	if s.mirror != nil {
		if err := s.mirror.SetScore(ctx, user.TelegramID, user.OverallScore); err != nil {
			s.logger.Warn("failed to mirror score", "user_id", user.TelegramID, "error", err)
		}
		if err := s.mirror.SetDisplayName(ctx, user.TelegramID, user.DisplayName()); err != nil {
			s.logger.Warn("failed to mirror display name", "user_id", user.TelegramID, "error", err)
		}
	}

	if s.hub != nil {
		entries, err := s.leaderboard.Global(ctx, 10)
		if err != nil {
			s.logger.Warn("failed to build leaderboard broadcast", "error", err)
			return
		}
		s.hub.BroadcastLeaderboard(entries)
	}
}
