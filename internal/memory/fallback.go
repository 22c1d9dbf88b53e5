package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// FallbackStore is the in-process implementation used when no vector
// backend is available, and as the degraded path of the vector store.
type FallbackStore struct {
	mu    sync.RWMutex
	items map[uuid.UUID][]Record
}

var _ Store = (*FallbackStore)(nil)

func NewFallbackStore() *FallbackStore {
	return &FallbackStore{items: make(map[uuid.UUID][]Record)}
}

func (s *FallbackStore) Add(_ context.Context, agentID uuid.UUID, description, emotion string) Record {
	rec := Record{
		ID:          uuid.New(),
		AgentID:     agentID,
		Description: description,
		Emotion:     emotion,
		Timestamp:   time.Now().UTC(),
	}
	s.mu.Lock()
	s.items[agentID] = append(s.items[agentID], rec)
	s.mu.Unlock()
	return rec
}

func (s *FallbackStore) Recent(_ context.Context, agentID uuid.UUID, limit int) []Record {
	s.mu.RLock()
	stored := s.items[agentID]
	out := make([]Record, len(stored))
	copy(out, stored)
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

func (s *FallbackStore) DeleteAgent(_ context.Context, agentID uuid.UUID) {
	s.mu.Lock()
	delete(s.items, agentID)
	s.mu.Unlock()
}
