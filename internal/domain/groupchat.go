package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DefaultGroupChatName is the scene every user gets at registration.
const DefaultGroupChatName = "Cyber City"

type GroupChat struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `json:"description,omitempty"`

	CreatedByUserID uuid.UUID `gorm:"type:uuid;index;not null" json:"created_by_user_id"`
	IsActive        bool      `gorm:"not null;default:true" json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (GroupChat) TableName() string { return "group_chats" }

func (g *GroupChat) BeforeCreate(tx *gorm.DB) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	return nil
}

// GroupChatAgent is the membership association row between chats and agents.
type GroupChatAgent struct {
	GroupChatID uuid.UUID `gorm:"type:uuid;primaryKey" json:"group_chat_id"`
	AgentID     uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"agent_id"`
}

func (GroupChatAgent) TableName() string { return "group_chat_agents" }
