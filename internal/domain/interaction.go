package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Interaction is one line of an agent's "who I talked to" log, used to
// rebuild bounded conversational context for text generation.
type Interaction struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID     uuid.UUID `gorm:"type:uuid;index;not null" json:"agent_id"`
	Partner     string    `gorm:"size:255" json:"partner,omitempty"`
	Description string    `gorm:"not null" json:"description"`

	Timestamp time.Time `gorm:"index" json:"timestamp"`
}

func (Interaction) TableName() string { return "interactions" }

func (i *Interaction) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Timestamp.IsZero() {
		i.Timestamp = time.Now().UTC()
	}
	return nil
}
