package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	PlanStatusPlanned    = "planned"
	PlanStatusActive     = "active"
	PlanStatusInProgress = "in-progress"
	PlanStatusCompleted  = "completed"
)

// OpenPlanStatuses are the states that count as "the agent already has a
// plan" for the engine's soft one-plan cap.
var OpenPlanStatuses = []string{PlanStatusActive, PlanStatusPlanned, PlanStatusInProgress}

type Plan struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	AgentID     uuid.UUID `gorm:"type:uuid;index;not null" json:"agent_id"`
	Title       string    `gorm:"size:255;not null" json:"title"`
	Description string    `json:"description,omitempty"`
	Status      string    `gorm:"size:64;not null;default:active" json:"status"`

	CreatedAt time.Time `json:"created_at"`
}

func (Plan) TableName() string { return "plans" }

func (p *Plan) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
