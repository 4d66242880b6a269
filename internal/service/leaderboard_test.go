package service

import (
	"context"
	"testing"

	"github.com/quizleague/backend/internal/config"
	"github.com/quizleague/backend/internal/memory"
)

func seedScores(t *testing.T, store *memory.Store, scores map[string]int64) {
	t.Helper()
	for id, score := range scores {
		if _, err := store.IncrementScore(context.Background(), id, score); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}
}

func TestRankIsTieAware(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedScores(t, store, map[string]int64{"a": 100, "b": 100, "c": 50})

	svc := NewLeaderboardService(store, &config.LeaderboardConfig{DefaultLimit: 50, MaxLimit: 500}, testLogger())

	rank, err := svc.Rank(ctx, 100)
	if err != nil {
		t.Fatalf("rank 100: %v", err)
	}
	if rank != 1 {
		t.Fatalf("both 100-point users should rank 1, got %d", rank)
	}

	rank, err = svc.Rank(ctx, 50)
	if err != nil {
		t.Fatalf("rank 50: %v", err)
	}
	if rank != 3 {
		t.Fatalf("50-point user should rank 3 behind two higher scores, got %d", rank)
	}
}

func TestGlobalRanksArePositional(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedScores(t, store, map[string]int64{"a": 100, "b": 100, "c": 50})

	svc := NewLeaderboardService(store, &config.LeaderboardConfig{DefaultLimit: 50, MaxLimit: 500}, testLogger())

	entries, err := svc.Global(ctx, 10)
	if err != nil {
		t.Fatalf("global: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	for i, entry := range entries {
		if entry.CurrentRank != int64(i+1) {
			t.Fatalf("entry %d: expected positional rank %d, got %d", i, i+1, entry.CurrentRank)
		}
	}
	// Tied users get distinct positions here, unlike Rank.
	if entries[0].GamePoints != 100 || entries[1].GamePoints != 100 || entries[2].GamePoints != 50 {
		t.Fatalf("unexpected ordering: %+v", entries)
	}
}

func TestGlobalClampsLimit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	seedScores(t, store, map[string]int64{"a": 1, "b": 2, "c": 3, "d": 4})

	svc := NewLeaderboardService(store, &config.LeaderboardConfig{DefaultLimit: 2, MaxLimit: 3}, testLogger())

	entries, err := svc.Global(ctx, 0)
	if err != nil {
		t.Fatalf("global default: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected default limit of 2, got %d entries", len(entries))
	}

	entries, err = svc.Global(ctx, 100)
	if err != nil {
		t.Fatalf("global capped: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected max limit of 3, got %d entries", len(entries))
	}
}

func TestGlobalDisplayNameFallback(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	if _, err := store.IncrementScore(ctx, "12345", 10); err != nil {
		t.Fatalf("seed: %v", err)
	}

	svc := NewLeaderboardService(store, &config.LeaderboardConfig{DefaultLimit: 50, MaxLimit: 500}, testLogger())

	entries, err := svc.Global(ctx, 10)
	if err != nil {
		t.Fatalf("global: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].UserName != "user_12345" {
		t.Fatalf("expected fallback display name user_12345, got %q", entries[0].UserName)
	}
}
