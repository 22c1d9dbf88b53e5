package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event types. EventTypeDirectChat marks agent-to-agent (or user-to-agent)
// messages with a concrete target; those are the only events the engine's
// reply lookup considers. Group messages get EventTypeGroupChat and are
// never reply targets.
const (
	EventTypeDirectChat = "chat"
	EventTypeGroupChat  = "chat_group"
	EventTypeMessage    = "message"
	EventTypeCustom     = "custom"
)

// Event is one immutable row of the world feed.
type Event struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Description string    `gorm:"not null" json:"description"`
	Type        string    `gorm:"size:64;index" json:"type,omitempty"`

	ActorID  *uuid.UUID `gorm:"type:uuid;index" json:"actor_id,omitempty"`
	TargetID *uuid.UUID `gorm:"type:uuid;index" json:"target_id,omitempty"`

	Metadata datatypes.JSON `json:"metadata,omitempty"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Event) TableName() string { return "events" }

func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
