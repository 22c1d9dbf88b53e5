package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Agent is one simulated persona. Mood lives in [0,1], energy in [0,100];
// the simulation engine is the only writer of mood/energy/current_task
// outside of direct user messaging.
type Agent struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name   string    `gorm:"size:255;not null" json:"name"`
	Mood   float64   `gorm:"not null;default:0.5" json:"mood"`
	Energy int       `gorm:"not null;default:100" json:"energy"`

	Traits      datatypes.JSONSlice[string] `json:"traits"`
	Persona     string                      `gorm:"size:1024" json:"persona,omitempty"`
	CurrentTask string                      `gorm:"size:255" json:"current_task,omitempty"`

	UserID uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Agent) TableName() string { return "agents" }

func (a *Agent) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// MoodColor maps mood onto the traffic-light scale the UI shows.
func (a *Agent) MoodColor() string {
	if a.Mood >= 0.7 {
		return "green"
	}
	if a.Mood >= 0.4 {
		return "yellow"
	}
	return "red"
}
