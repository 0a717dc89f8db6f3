package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"jobchat/internal/model"
)

func turn(role, text string) model.Turn {
	return model.Turn{Role: role, Text: text, At: time.Now()}
}

func TestMemoryStore_AppendAndHistory(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	if err := store.Append(ctx, "s1",
		turn(model.RoleUser, "find jobs"),
		turn(model.RoleSystem, "Found 3 job postings."),
	); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	turns, err := store.History(ctx, "s1")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("history has %d turns, want 2", len(turns))
	}
	if turns[0].Role != model.RoleUser || turns[0].Text != "find jobs" {
		t.Errorf("first turn = %+v", turns[0])
	}
	if turns[1].Role != model.RoleSystem {
		t.Errorf("second turn role = %q, want system", turns[1].Role)
	}
}

func TestMemoryStore_UnknownSession(t *testing.T) {
	store := NewMemoryStore(0)

	turns, err := store.History(context.Background(), "never-seen")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("history = %+v, want empty", turns)
	}
}

func TestMemoryStore_HistoryReturnsCopy(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	if err := store.Append(ctx, "s1", turn(model.RoleUser, "original")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	turns, _ := store.History(ctx, "s1")
	turns[0].Text = "mutated"

	again, _ := store.History(ctx, "s1")
	if again[0].Text != "original" {
		t.Error("mutating a returned history leaked into the store")
	}
}

func TestMemoryStore_TrimsToLimit(t *testing.T) {
	store := NewMemoryStore(4)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		if err := store.Append(ctx, "s1", turn(model.RoleUser, fmt.Sprintf("turn-%d", i))); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	turns, _ := store.History(ctx, "s1")
	if len(turns) != 4 {
		t.Fatalf("history has %d turns, want 4", len(turns))
	}
	if turns[0].Text != "turn-2" || turns[3].Text != "turn-5" {
		t.Errorf("kept wrong window: first %q, last %q", turns[0].Text, turns[3].Text)
	}
}

func TestMemoryStore_EvictIdle(t *testing.T) {
	store := NewMemoryStore(0)
	ctx := context.Background()

	if err := store.Append(ctx, "stale", turn(model.RoleUser, "old")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	store.sessions["stale"].lastSeen = time.Now().Add(-2 * time.Hour)

	if err := store.Append(ctx, "fresh", turn(model.RoleUser, "new")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if evicted := store.EvictIdle(time.Hour); evicted != 1 {
		t.Fatalf("evicted %d sessions, want 1", evicted)
	}
	if store.Len() != 1 {
		t.Errorf("store has %d sessions, want 1", store.Len())
	}
	if turns, _ := store.History(ctx, "fresh"); len(turns) != 1 {
		t.Error("fresh session was evicted")
	}
	if turns, _ := store.History(ctx, "stale"); len(turns) != 0 {
		t.Error("stale session survived eviction")
	}
}
