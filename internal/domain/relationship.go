package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Relationship is a directed edge between two agents. (A,B) and (B,A) are
// distinct rows. Affinity sits in [-1,1]; strength sits in [0,1] and only
// ever grows under current behaviors.
type Relationship struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	SourceAgentID uuid.UUID `gorm:"type:uuid;index:idx_rel_pair;not null" json:"source"`
	TargetAgentID uuid.UUID `gorm:"type:uuid;index:idx_rel_pair;not null" json:"target"`

	Affinity float64 `gorm:"not null;default:0" json:"affinity"`
	Label    string  `gorm:"size:64" json:"label,omitempty"`
	Strength float64 `gorm:"not null;default:0.5" json:"strength"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (Relationship) TableName() string { return "relationships" }

func (r *Relationship) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
