package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Memory holds the relational copy of an agent memory. The full text also
// goes to the vector side-store; the two copies can diverge when the vector
// store degrades to its fallback.
type Memory struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID     uuid.UUID `gorm:"type:uuid;index;not null" json:"agent_id"`
	Description string    `gorm:"not null" json:"description"`
	Emotion     string    `gorm:"size:64" json:"emotion,omitempty"`

	SourceEventID *uuid.UUID `gorm:"type:uuid" json:"source_event_id,omitempty"`

	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

func (Memory) TableName() string { return "memories" }

func (m *Memory) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return nil
}
