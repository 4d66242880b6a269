package domain

import "time"

// League represents a group of users competing against each other.
// Private leagues are join-gated by a 6-character code; public leagues
// are open and discoverable through search.
type League struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatorID   string    `json:"creator_id"`
	IsPrivate   bool      `json:"is_private"`
	Code        string    `json:"code,omitempty"` // set iff IsPrivate
	Members     []string  `json:"members"`
	Points      int64     `json:"points"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// HasMember reports whether userID is in the league's member set.
func (l *League) HasMember(userID string) bool {
	for _, m := range l.Members {
		if m == userID {
			return true
		}
	}
	return false
}

// CreateLeagueRequest represents a request to create a new league
type CreateLeagueRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"is_private"`
	CreatorID   string `json:"-"`
}

// LeagueSummary is the public-facing view returned by search
type LeagueSummary struct {
	LeagueID    string `json:"league_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MemberCount int    `json:"member_count"`
}

// LeagueLookup is returned by the join pre-check. It deliberately exposes
// nothing beyond name, description and the caller's own membership state.
type LeagueLookup struct {
	LeagueID    string `json:"league_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsMember    bool   `json:"is_member"`
}

// MemberLeague is a league as seen from a member's perspective
type MemberLeague struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsOwner     bool   `json:"isOwner"`
	Members     int    `json:"members"`
	Points      int64  `json:"points"`
}

// JoinStatus is the outcome of a join attempt
type JoinStatus string

const (
	JoinStatusJoined        JoinStatus = "joined"
	JoinStatusAlreadyMember JoinStatus = "already_member"
)

// JoinResult reports the outcome of joining a league by code
type JoinResult struct {
	Status       JoinStatus `json:"status"`
	MembersAdded int64      `json:"members_added"`
}
