package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/quizleague/backend/internal/domain"
)

// Store is an in-memory implementation of the service store contracts. It
// backs tests and dev mode when no database is configured. All conditional
// updates run under one lock, giving the same atomicity the SQL store gets
// from single conditional statements.
type Store struct {
	mu        sync.RWMutex
	leagues   map[string]*domain.League // by id
	byCode    map[string]string         // code -> league id
	users     map[string]*domain.User   // by telegram id
	events    []domain.ScoreEvent
	questions []map[string]interface{}
}

// NewStore creates an empty in-memory store
func NewStore() *Store {
	return &Store{
		leagues: make(map[string]*domain.League),
		byCode:  make(map[string]string),
		users:   make(map[string]*domain.User),
	}
}

// InsertLeague persists a new league and returns its assigned id.
func (s *Store) InsertLeague(_ context.Context, league *domain.League) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Same guarantee as the SQL store's partial unique index on code.
	if league.Code != "" {
		if _, exists := s.byCode[league.Code]; exists {
			return "", domain.ErrCodeTaken
		}
	}

	now := time.Now()
	stored := *league
	stored.ID = uuid.New().String()
	stored.Members = append([]string(nil), league.Members...)
	stored.CreatedAt = now
	stored.UpdatedAt = now

	s.leagues[stored.ID] = &stored
	if stored.Code != "" {
		s.byCode[stored.Code] = stored.ID
	}
	return stored.ID, nil
}

// CodeExists reports whether a league code is already taken.
func (s *Store) CodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.byCode[code]
	return ok, nil
}

// GetLeagueByCode returns the private league with the given code.
func (s *Store) GetLeagueByCode(_ context.Context, code string) (*domain.League, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byCode[code]
	if !ok {
		return nil, domain.ErrLeagueNotFound
	}
	league := s.leagues[id]
	if league == nil || !league.IsPrivate {
		return nil, domain.ErrLeagueNotFound
	}
	return copyLeague(league), nil
}

// AddMemberByCode performs the conditional membership add under the store
// lock: match code, private, user not yet a member.
func (s *Store) AddMemberByCode(_ context.Context, code, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := s.byCode[code]
	if !ok {
		return 0, nil
	}
	league := s.leagues[id]
	if league == nil || !league.IsPrivate || league.HasMember(userID) {
		return 0, nil
	}
	league.Members = append(league.Members, userID)
	league.UpdatedAt = time.Now()
	return 1, nil
}

// SearchPublicLeagues returns public leagues matching the query.
func (s *Store) SearchPublicLeagues(_ context.Context, query string, limit int) ([]domain.LeagueSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query = strings.ToLower(query)
	var out []domain.LeagueSummary
	for _, league := range s.leagues {
		if league.IsPrivate {
			continue
		}
		if query != "" &&
			!strings.Contains(strings.ToLower(league.Name), query) &&
			!strings.Contains(strings.ToLower(league.Description), query) {
			continue
		}
		out = append(out, domain.LeagueSummary{
			LeagueID:    league.ID,
			Name:        league.Name,
			Description: league.Description,
			MemberCount: len(league.Members),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LeaguesForMember returns the leagues the user belongs to.
func (s *Store) LeaguesForMember(_ context.Context, userID string) ([]domain.MemberLeague, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.MemberLeague
	for _, league := range s.leagues {
		if !league.HasMember(userID) {
			continue
		}
		out = append(out, domain.MemberLeague{
			ID:          league.ID,
			Name:        league.Name,
			Description: league.Description,
			IsOwner:     league.CreatorID == userID,
			Members:     len(league.Members),
			Points:      league.Points,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// GetUser returns the user record for the given id.
func (s *Store) GetUser(_ context.Context, userID string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

// UpsertUser creates or refreshes a user profile, never touching the score.
func (s *Store) UpsertUser(_ context.Context, profile domain.TelegramProfile) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	user, ok := s.users[profile.ID]
	if !ok {
		user = &domain.User{
			TelegramID: profile.ID,
			CreatedAt:  now,
		}
		s.users[profile.ID] = user
	}
	user.Username = profile.Username
	user.FirstName = profile.FirstName
	user.LastName = profile.LastName
	user.UpdatedAt = now

	copied := *user
	return &copied, nil
}

// IncrementScore atomically adds delta to the user's score, creating the
// record if absent.
func (s *Store) IncrementScore(_ context.Context, userID string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	user, ok := s.users[userID]
	if !ok {
		user = &domain.User{
			TelegramID: userID,
			CreatedAt:  now,
		}
		s.users[userID] = user
	}
	user.OverallScore += delta
	user.UpdatedAt = now
	return user.OverallScore, nil
}

// CountHigherScores returns the number of users with a strictly greater score.
func (s *Store) CountHigherScores(_ context.Context, score int64) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, user := range s.users {
		if user.OverallScore > score {
			count++
		}
	}
	return count, nil
}

// TopUsers returns up to limit users ordered by score descending. Ties are
// ordered by user id so the listing is stable.
func (s *Store) TopUsers(_ context.Context, limit int) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		users = append(users, *user)
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].OverallScore != users[j].OverallScore {
			return users[i].OverallScore > users[j].OverallScore
		}
		return users[i].TelegramID < users[j].TelegramID
	})
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

// AllScores returns every user's cumulative score keyed by id.
func (s *Store) AllScores(_ context.Context) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make(map[string]int64, len(s.users))
	for id, user := range s.users {
		scores[id] = user.OverallScore
	}
	return scores, nil
}

// RecordEvent appends an immutable score event.
func (s *Store) RecordEvent(_ context.Context, event domain.ScoreEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a snapshot of recorded score events.
func (s *Store) Events() []domain.ScoreEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ScoreEvent(nil), s.events...)
}

// ListQuestions returns all stored question documents.
func (s *Store) ListQuestions(_ context.Context) ([]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]map[string]interface{}(nil), s.questions...), nil
}

// ReplaceQuestions swaps the question collection for docs.
func (s *Store) ReplaceQuestions(_ context.Context, docs []map[string]interface{}) (int64, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := int64(len(s.questions))
	s.questions = append([]map[string]interface{}(nil), docs...)
	return int64(len(docs)), deleted, nil
}

// CountQuestions returns the number of stored question documents.
func (s *Store) CountQuestions(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.questions)), nil
}

// Ping always succeeds for the in-memory store.
func (s *Store) Ping(_ context.Context) error {
	return nil
}

func copyLeague(league *domain.League) *domain.League {
	copied := *league
	copied.Members = append([]string(nil), league.Members...)
	return &copied
}
