package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/quizleague/backend/internal/domain"
)

func TestAddMemberByCodeConditional(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	_, err := store.InsertLeague(ctx, &domain.League{
		Name:      "Test League",
		IsPrivate: true,
		Code:      "ABC123",
		CreatorID: "owner",
		Members:   []string{"owner"},
	})
	if err != nil {
		t.Fatalf("insert league: %v", err)
	}

	matched, err := store.AddMemberByCode(ctx, "ABC123", "u2")
	if err != nil {
		t.Fatalf("add member: %v", err)
	}
	if matched != 1 {
		t.Fatalf("expected 1 matched row, got %d", matched)
	}

	// Same user again matches nothing.
	matched, err = store.AddMemberByCode(ctx, "ABC123", "u2")
	if err != nil {
		t.Fatalf("repeat add: %v", err)
	}
	if matched != 0 {
		t.Fatalf("expected 0 matched rows on repeat, got %d", matched)
	}

	// Unknown code matches nothing.
	matched, err = store.AddMemberByCode(ctx, "ZZZZZZ", "u3")
	if err != nil {
		t.Fatalf("unknown code: %v", err)
	}
	if matched != 0 {
		t.Fatalf("expected 0 matched rows for unknown code, got %d", matched)
	}
}

func TestInsertLeagueRejectsDuplicateCode(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	firstID, err := store.InsertLeague(ctx, &domain.League{
		Name:      "First",
		IsPrivate: true,
		Code:      "ABC123",
		CreatorID: "u1",
		Members:   []string{"u1"},
	})
	if err != nil {
		t.Fatalf("insert first league: %v", err)
	}

	_, err = store.InsertLeague(ctx, &domain.League{
		Name:      "Second",
		IsPrivate: true,
		Code:      "ABC123",
		CreatorID: "u2",
		Members:   []string{"u2"},
	})
	if !errors.Is(err, domain.ErrCodeTaken) {
		t.Fatalf("expected ErrCodeTaken for duplicate code, got %v", err)
	}

	// The original league stays reachable by its code.
	league, err := store.GetLeagueByCode(ctx, "ABC123")
	if err != nil {
		t.Fatalf("get league: %v", err)
	}
	if league.ID != firstID {
		t.Fatalf("expected code to resolve to the first league %s, got %s", firstID, league.ID)
	}
}

func TestIncrementScoreConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	const workers = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.IncrementScore(ctx, "u1", 2); err != nil {
				t.Errorf("increment: %v", err)
			}
		}()
	}
	wg.Wait()

	user, err := store.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if user.OverallScore != workers*2 {
		t.Fatalf("expected score %d, got %d", workers*2, user.OverallScore)
	}
}

func TestUpsertUserPreservesScore(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	if _, err := store.IncrementScore(ctx, "u1", 40); err != nil {
		t.Fatalf("increment: %v", err)
	}

	user, err := store.UpsertUser(ctx, domain.TelegramProfile{ID: "u1", Username: "alice"})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if user.OverallScore != 40 {
		t.Fatalf("upsert must not touch the score, got %d", user.OverallScore)
	}
	if user.Username != "alice" {
		t.Fatalf("expected profile refresh, got %q", user.Username)
	}
}

func TestGetUserNotFound(t *testing.T) {
	store := NewStore()
	if _, err := store.GetUser(context.Background(), "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestTopUsersStableOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	for i, score := range []int64{30, 30, 10} {
		if _, err := store.IncrementScore(ctx, fmt.Sprintf("u%d", i), score); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	users, err := store.TopUsers(ctx, 10)
	if err != nil {
		t.Fatalf("top users: %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("expected 3 users, got %d", len(users))
	}
	// Ties break on id, so the order is deterministic.
	if users[0].TelegramID != "u0" || users[1].TelegramID != "u1" || users[2].TelegramID != "u2" {
		t.Fatalf("unexpected ordering: %v %v %v", users[0].TelegramID, users[1].TelegramID, users[2].TelegramID)
	}
}

func TestReplaceQuestionsCounts(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	inserted, deleted, err := store.ReplaceQuestions(ctx, []map[string]interface{}{{"q": "1"}, {"q": "2"}})
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if inserted != 2 || deleted != 0 {
		t.Fatalf("expected 2 inserted, 0 deleted; got %d, %d", inserted, deleted)
	}

	inserted, deleted, err = store.ReplaceQuestions(ctx, []map[string]interface{}{{"q": "3"}})
	if err != nil {
		t.Fatalf("replace again: %v", err)
	}
	if inserted != 1 || deleted != 2 {
		t.Fatalf("expected 1 inserted, 2 deleted; got %d, %d", inserted, deleted)
	}

	count, err := store.CountQuestions(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 question, got %d", count)
	}
}
