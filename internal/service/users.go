package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quizleague/backend/internal/domain"
)

// UserService handles user profile upserts from Telegram authentication
type UserService struct {
	store  UserStore
	mirror ScoreMirror
	logger *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(store UserStore, logger *slog.Logger) *UserService {
	return &UserService{
		store:  store,
		logger: logger,
	}
}

// SetMirror attaches the realtime score mirror for display-name caching.
func (s *UserService) SetMirror(mirror ScoreMirror) {
	s.mirror = mirror
}

// Authenticate upserts the user record for a verified Telegram profile.
// First-time users start with a zero cumulative score; returning users keep
// their score and only the profile fields are refreshed.
func (s *UserService) Authenticate(ctx context.Context, profile domain.TelegramProfile) (*domain.User, error) {
	if profile.ID == "" {
		return nil, domain.ErrInvalidRequest
	}

	user, err := s.store.UpsertUser(ctx, profile)
	if err != nil {
		return nil, fmt.Errorf("upserting user: %w", err)
	}

	if s.mirror != nil {
		if err := s.mirror.SetDisplayName(ctx, user.TelegramID, user.DisplayName()); err != nil {
			s.logger.Warn("failed to mirror display name", "user_id", user.TelegramID, "error", err)
		}
	}

	return user, nil
}
