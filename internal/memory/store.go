// Package memory holds the agents' episodic memory side-store. The store is
// advisory: simulation ticks and API handlers consult it for flavour text,
// so every operation degrades silently instead of returning errors.
package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is one remembered episode.
type Record struct {
	ID          uuid.UUID
	AgentID     uuid.UUID
	Description string
	Emotion     string
	Timestamp   time.Time
}

// Store keeps per-agent memories. Implementations never surface errors:
// a failed write is dropped, a failed read comes back empty or from a
// degraded backend.
type Store interface {
	// Add stores one memory and returns the stored record.
	Add(ctx context.Context, agentID uuid.UUID, description, emotion string) Record
	// Recent returns up to limit of the agent's newest memories ordered
	// oldest to newest.
	Recent(ctx context.Context, agentID uuid.UUID, limit int) []Record
	// DeleteAgent removes every memory belonging to the agent.
	DeleteAgent(ctx context.Context, agentID uuid.UUID)
}

// Descriptions projects records onto their description strings, in order.
func Descriptions(records []Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Description)
	}
	return out
}
