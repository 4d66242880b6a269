package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quizleague/backend/internal/domain"
)

// LeagueService provides business logic for league creation and membership
type LeagueService struct {
	store  LeagueStore
	logger *slog.Logger
}

// NewLeagueService creates a new league service
func NewLeagueService(store LeagueStore, logger *slog.Logger) *LeagueService {
	return &LeagueService{
		store:  store,
		logger: logger,
	}
}

// NormalizeCode trims and upper-cases a league code as supplied by a caller.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create validates and persists a new league. Private leagues are assigned a
// unique code before the single insert, so a private league is never visible
// without one. The creator is always the first member.
func (s *LeagueService) Create(ctx context.Context, req domain.CreateLeagueRequest) (*domain.League, error) {
	name := strings.TrimSpace(req.Name)
	if len(name) < 3 {
		return nil, domain.ErrInvalidLeagueName
	}

	league := &domain.League{
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		CreatorID:   req.CreatorID,
		IsPrivate:   req.IsPrivate,
		Members:     []string{req.CreatorID},
	}

	if req.IsPrivate {
		code, err := GenerateUniqueCode(ctx, s.store.CodeExists)
		if err != nil {
			return nil, err
		}
		league.Code = code
	}

	id, err := s.store.InsertLeague(ctx, league)
	if err != nil {
		return nil, fmt.Errorf("inserting league: %w", err)
	}
	league.ID = id

	s.logger.Info("league created",
		"league_id", league.ID,
		"is_private", league.IsPrivate,
		"creator_id", league.CreatorID,
	)
	return league, nil
}

// CheckCode looks up a private league by code so the caller can confirm
// before joining. It exposes only the name, description and whether the
// caller is already a member.
func (s *LeagueService) CheckCode(ctx context.Context, code, userID string) (*domain.LeagueLookup, error) {
	code = NormalizeCode(code)
	if len(code) != codeLength {
		return nil, domain.ErrInvalidCode
	}

	league, err := s.store.GetLeagueByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	return &domain.LeagueLookup{
		LeagueID:    league.ID,
		Name:        league.Name,
		Description: league.Description,
		IsMember:    league.HasMember(userID),
	}, nil
}

// Join adds the user to the private league with the given code. The add is a
// single conditional store update, so concurrent joins never lose members and
// repeating the call is idempotent. A zero-match update is disambiguated by a
// follow-up read: the league either does not exist or the user is already in.
func (s *LeagueService) Join(ctx context.Context, code, userID string) (*domain.JoinResult, error) {
	code = NormalizeCode(code)
	if len(code) != codeLength {
		return nil, domain.ErrInvalidCode
	}

	matched, err := s.store.AddMemberByCode(ctx, code, userID)
	if err != nil {
		return nil, fmt.Errorf("adding member: %w", err)
	}
	if matched > 0 {
		s.logger.Info("user joined league", "code", code, "user_id", userID)
		return &domain.JoinResult{Status: domain.JoinStatusJoined, MembersAdded: matched}, nil
	}

	league, err := s.store.GetLeagueByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if league.HasMember(userID) {
		return &domain.JoinResult{Status: domain.JoinStatusAlreadyMember}, nil
	}
	return nil, domain.ErrLeagueNotFound
}

// Search returns public leagues matching the query string.
func (s *LeagueService) Search(ctx context.Context, query string, limit int) ([]domain.LeagueSummary, error) {
	leagues, err := s.store.SearchPublicLeagues(ctx, strings.TrimSpace(query), limit)
	if err != nil {
		return nil, fmt.Errorf("searching leagues: %w", err)
	}
	return leagues, nil
}

// MemberOf returns the leagues the user belongs to.
func (s *LeagueService) MemberOf(ctx context.Context, userID string) ([]domain.MemberLeague, error) {
	leagues, err := s.store.LeaguesForMember(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing member leagues: %w", err)
	}
	return leagues, nil
}
