package domain

import (
	"fmt"
	"time"
)

// User represents a quiz player and their cumulative score.
// OverallScore only ever grows; every mutation goes through an
// atomic increment in the store.
type User struct {
	TelegramID   string    `json:"telegram_id"`
	Username     string    `json:"username"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	AvatarURL    string    `json:"avatar_url,omitempty"`
	OverallScore int64     `json:"overall_score"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// DisplayName resolves the name shown on leaderboards: username if present,
// else first name, else a fallback derived from the id.
func (u *User) DisplayName() string {
	if u.Username != "" {
		return u.Username
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return fmt.Sprintf("user_%s", u.TelegramID)
}

// TelegramProfile is the identity payload extracted from Telegram WebApp
// init data.
type TelegramProfile struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

// LeaderboardEntry is a single row of the global leaderboard. The JSON field
// names match what the webapp client consumes.
type LeaderboardEntry struct {
	ID           string `json:"id"`
	UserName     string `json:"userName"`
	GamePoints   int64  `json:"gamePoints"`
	CurrentRank  int64  `json:"currentRank"`
	PreviousRank *int64 `json:"previousRank"`
	AvatarURL    string `json:"avatarUrl"`
}
