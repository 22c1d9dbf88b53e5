package memory

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestFallbackStoreAddAndRecent(t *testing.T) {
	ctx := context.Background()
	store := NewFallbackStore()
	agentID := uuid.New()

	for _, desc := range []string{"first", "second", "third"} {
		rec := store.Add(ctx, agentID, desc, "neutral")
		if rec.ID == uuid.Nil {
			t.Fatalf("Add returned zero ID for %q", desc)
		}
		if rec.AgentID != agentID {
			t.Fatalf("Add returned agent %s, want %s", rec.AgentID, agentID)
		}
	}

	got := store.Recent(ctx, agentID, 2)
	if len(got) != 2 {
		t.Fatalf("Recent returned %d records, want 2", len(got))
	}
	if got[0].Description != "second" || got[1].Description != "third" {
		t.Fatalf("Recent returned %q then %q, want oldest-first tail", got[0].Description, got[1].Description)
	}
}

func TestFallbackStoreRecentUnknownAgent(t *testing.T) {
	store := NewFallbackStore()
	if got := store.Recent(context.Background(), uuid.New(), 5); len(got) != 0 {
		t.Fatalf("Recent for unknown agent returned %d records, want 0", len(got))
	}
}

func TestFallbackStoreDeleteAgent(t *testing.T) {
	ctx := context.Background()
	store := NewFallbackStore()
	keep := uuid.New()
	drop := uuid.New()

	store.Add(ctx, keep, "kept memory", "positive")
	store.Add(ctx, drop, "doomed memory", "negative")

	store.DeleteAgent(ctx, drop)

	if got := store.Recent(ctx, drop, 10); len(got) != 0 {
		t.Fatalf("deleted agent still has %d memories", len(got))
	}
	if got := store.Recent(ctx, keep, 10); len(got) != 1 {
		t.Fatalf("unrelated agent lost memories, have %d want 1", len(got))
	}
}
