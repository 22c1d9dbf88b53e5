package db

import (
	types "github.com/velmark/cybercity-backend/internal/domain"
	"gorm.io/gorm"
)

// AutoMigrateCore creates the relational tables. Works on Postgres and on
// the sqlite databases the tests run against.
func AutoMigrateCore(db *gorm.DB) error {
	return db.AutoMigrate(

		// Identity
		&types.User{},

		// Simulation world
		&types.Agent{},
		&types.GroupChat{},
		&types.GroupChatAgent{},
		&types.Relationship{},

		// Append-only logs
		&types.Event{},
		&types.Memory{},
		&types.Interaction{},
		&types.Plan{},
	)
}

// AutoMigrateVectors creates the pgvector-backed side-store table. Split out
// because the vector column type only exists on Postgres.
func AutoMigrateVectors(db *gorm.DB) error {
	return db.AutoMigrate(&types.AgentMemoryVector{})
}
