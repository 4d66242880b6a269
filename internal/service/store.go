package service

import (
	"context"

	"github.com/quizleague/backend/internal/domain"
)

// LeagueStore is the persistence contract for leagues. Implementations must
// make AddMemberByCode a single conditional update: the membership check and
// the append happen atomically in the store, never as a read followed by a
// write.
type LeagueStore interface {
	// InsertLeague persists a new league and returns its store-assigned id.
	InsertLeague(ctx context.Context, league *domain.League) (string, error)

	// CodeExists reports whether any league already uses the code.
	CodeExists(ctx context.Context, code string) (bool, error)

	// GetLeagueByCode returns the private league with the given code, or
	// domain.ErrLeagueNotFound.
	GetLeagueByCode(ctx context.Context, code string) (*domain.League, error)

	// AddMemberByCode adds userID to the members of the private league
	// matching code, only if userID is not already a member. It returns the
	// number of leagues matched by the conditional update (0 or 1).
	AddMemberByCode(ctx context.Context, code, userID string) (int64, error)

	// SearchPublicLeagues returns public leagues whose name or description
	// matches the query case-insensitively, up to limit.
	SearchPublicLeagues(ctx context.Context, query string, limit int) ([]domain.LeagueSummary, error)

	// LeaguesForMember returns the leagues userID belongs to.
	LeaguesForMember(ctx context.Context, userID string) ([]domain.MemberLeague, error)
}

// UserStore is the persistence contract for user score records.
type UserStore interface {
	// GetUser returns the user record, or domain.ErrUserNotFound.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates the user with a zero score on first sight, or
	// refreshes the profile fields of an existing record. The cumulative
	// score is never touched.
	UpsertUser(ctx context.Context, profile domain.TelegramProfile) (*domain.User, error)

	// IncrementScore atomically adds delta to the user's cumulative score,
	// creating the record if absent, and returns the new total.
	IncrementScore(ctx context.Context, userID string, delta int64) (int64, error)

	// CountHigherScores returns how many users have a strictly greater
	// cumulative score.
	CountHigherScores(ctx context.Context, score int64) (int64, error)

	// TopUsers returns up to limit users ordered by cumulative score
	// descending.
	TopUsers(ctx context.Context, limit int) ([]domain.User, error)

	// AllScores returns every user's cumulative score, keyed by user id.
	AllScores(ctx context.Context) (map[string]int64, error)
}

// EventStore records immutable score events.
type EventStore interface {
	RecordEvent(ctx context.Context, event domain.ScoreEvent) error
}

// QuestionStore is the opaque pass-through collection of quiz questions.
// Documents are stored and returned verbatim; no schema is enforced here.
type QuestionStore interface {
	ListQuestions(ctx context.Context) ([]map[string]interface{}, error)

	// ReplaceQuestions drops the existing collection and inserts docs,
	// returning (inserted, deleted) counts.
	ReplaceQuestions(ctx context.Context, docs []map[string]interface{}) (int64, int64, error)

	CountQuestions(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error
}

// ScoreMirror is a best-effort realtime copy of cumulative scores kept
// outside the authoritative store. Mirror failures are logged, never
// surfaced to callers.
type ScoreMirror interface {
	SetScore(ctx context.Context, userID string, score int64) error
	SetDisplayName(ctx context.Context, userID, name string) error
}

// Broadcaster pushes leaderboard snapshots to connected clients.
type Broadcaster interface {
	BroadcastLeaderboard(entries []domain.LeaderboardEntry)
}
