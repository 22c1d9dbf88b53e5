package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
)

type MemoryRepo interface {
	Create(dbc dbctx.Context, memory *types.Memory) error
	ListByAgent(dbc dbctx.Context, agentID uuid.UUID, limit int) ([]*types.Memory, error)
	DeleteByAgent(dbc dbctx.Context, agentID uuid.UUID) error
}

type memoryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMemoryRepo(db *gorm.DB, baseLog *logger.Logger) MemoryRepo {
	return &memoryRepo{db: db, log: baseLog.With("repo", "MemoryRepo")}
}

func (r *memoryRepo) Create(dbc dbctx.Context, memory *types.Memory) error {
	return conn(r.db, dbc).Create(memory).Error
}

func (r *memoryRepo) ListByAgent(dbc dbctx.Context, agentID uuid.UUID, limit int) ([]*types.Memory, error) {
	var rows []*types.Memory
	q := conn(r.db, dbc).
		Where("agent_id = ?", agentID).
		Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *memoryRepo) DeleteByAgent(dbc dbctx.Context, agentID uuid.UUID) error {
	return conn(r.db, dbc).
		Where("agent_id = ?", agentID).
		Delete(&types.Memory{}).Error
}
