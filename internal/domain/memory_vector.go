package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

// AgentMemoryVector is the vector side-store row for one memory: full text
// plus an embedding for similarity search. Lives only in Postgres (pgvector);
// migrated separately from the relational models.
type AgentMemoryVector struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID     uuid.UUID `gorm:"type:uuid;index;not null" json:"agent_id"`
	Description string    `gorm:"not null" json:"description"`
	Emotion     string    `gorm:"size:64" json:"emotion,omitempty"`

	Embedding *pgvector.Vector `gorm:"type:vector(1536)" json:"-"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (AgentMemoryVector) TableName() string { return "agent_memory_vectors" }

func (v *AgentMemoryVector) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
