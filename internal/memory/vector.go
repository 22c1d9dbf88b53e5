package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/velmark/cybercity-backend/internal/clients/llm"
	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
)

// VectorStore persists memories in the agent_memory_vectors table with an
// embedding per row for similarity search. Any database or embedding
// failure drops the call down to the in-process fallback, so a broken
// vector extension degrades the simulation instead of stopping it.
type VectorStore struct {
	db       *gorm.DB
	embedder llm.Embedder
	fallback *FallbackStore
	log      *logger.Logger
}

var _ Store = (*VectorStore)(nil)

func NewVectorStore(db *gorm.DB, embedder llm.Embedder, baseLog *logger.Logger) *VectorStore {
	return &VectorStore{
		db:       db,
		embedder: embedder,
		fallback: NewFallbackStore(),
		log:      baseLog.With("store", "memory"),
	}
}

func (s *VectorStore) Add(ctx context.Context, agentID uuid.UUID, description, emotion string) Record {
	row := types.AgentMemoryVector{
		AgentID:     agentID,
		Description: description,
		Emotion:     emotion,
	}
	if vec, err := s.embedder.Embed(ctx, description); err == nil {
		v := pgvector.NewVector(vec)
		row.Embedding = &v
	} else {
		s.log.Warn("embedding failed, storing memory without vector", "agent_id", agentID, "error", err)
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.log.Warn("vector insert failed, using fallback store", "agent_id", agentID, "error", err)
		return s.fallback.Add(ctx, agentID, description, emotion)
	}
	return Record{
		ID:          row.ID,
		AgentID:     row.AgentID,
		Description: row.Description,
		Emotion:     row.Emotion,
		Timestamp:   row.CreatedAt,
	}
}

func (s *VectorStore) Recent(ctx context.Context, agentID uuid.UUID, limit int) []Record {
	var rows []types.AgentMemoryVector
	q := s.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Order("created_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		s.log.Warn("vector query failed, using fallback store", "agent_id", agentID, "error", err)
		return s.fallback.Recent(ctx, agentID, limit)
	}
	out := make([]Record, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- { // oldest first
		out = append(out, Record{
			ID:          rows[i].ID,
			AgentID:     rows[i].AgentID,
			Description: rows[i].Description,
			Emotion:     rows[i].Emotion,
			Timestamp:   rows[i].CreatedAt,
		})
	}
	return out
}

// Similar returns the agent's memories closest to the query text by cosine
// distance. When the query cannot be embedded or the search fails it
// answers with Recent instead.
func (s *VectorStore) Similar(ctx context.Context, agentID uuid.UUID, query string, limit int) []Record {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return s.Recent(ctx, agentID, limit)
	}
	var rows []types.AgentMemoryVector
	err = s.db.WithContext(ctx).
		Where("agent_id = ? AND embedding IS NOT NULL", agentID).
		Clauses(clause.OrderBy{
			Expression: clause.Expr{SQL: "embedding <=> ?", Vars: []interface{}{pgvector.NewVector(vec)}},
		}).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		s.log.Warn("similarity search failed, using recency", "agent_id", agentID, "error", err)
		return s.Recent(ctx, agentID, limit)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{
			ID:          r.ID,
			AgentID:     r.AgentID,
			Description: r.Description,
			Emotion:     r.Emotion,
			Timestamp:   r.CreatedAt,
		})
	}
	return out
}

func (s *VectorStore) DeleteAgent(ctx context.Context, agentID uuid.UUID) {
	err := s.db.WithContext(ctx).
		Where("agent_id = ?", agentID).
		Delete(&types.AgentMemoryVector{}).Error
	if err != nil {
		s.log.Warn("vector delete failed", "agent_id", agentID, "error", err)
	}
	s.fallback.DeleteAgent(ctx, agentID)
}
