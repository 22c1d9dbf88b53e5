package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username       string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	HashedPassword string    `gorm:"not null" json:"-"`

	RegisteredAt time.Time `gorm:"not null" json:"registered_time"`
	LastActivity time.Time `gorm:"not null" json:"last_activity"`
}

func (User) TableName() string { return "users" }

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	now := time.Now().UTC()
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = now
	}
	if u.LastActivity.IsZero() {
		u.LastActivity = now
	}
	return nil
}
