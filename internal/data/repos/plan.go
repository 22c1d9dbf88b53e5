package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
)

type PlanRepo interface {
	Create(dbc dbctx.Context, plan *types.Plan) error
	// FirstOpen returns any plan of the agent still in an open status, or
	// nil when the agent has none.
	FirstOpen(dbc dbctx.Context, agentID uuid.UUID) (*types.Plan, error)
	ListByAgent(dbc dbctx.Context, agentID uuid.UUID) ([]*types.Plan, error)
	DeleteByAgent(dbc dbctx.Context, agentID uuid.UUID) error
}

type planRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPlanRepo(db *gorm.DB, baseLog *logger.Logger) PlanRepo {
	return &planRepo{db: db, log: baseLog.With("repo", "PlanRepo")}
}

func (r *planRepo) Create(dbc dbctx.Context, plan *types.Plan) error {
	return conn(r.db, dbc).Create(plan).Error
}

func (r *planRepo) FirstOpen(dbc dbctx.Context, agentID uuid.UUID) (*types.Plan, error) {
	var row types.Plan
	err := conn(r.db, dbc).
		Where("agent_id = ? AND status IN ?", agentID, types.OpenPlanStatuses).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *planRepo) ListByAgent(dbc dbctx.Context, agentID uuid.UUID) ([]*types.Plan, error) {
	var rows []*types.Plan
	err := conn(r.db, dbc).
		Where("agent_id = ?", agentID).
		Order("created_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *planRepo) DeleteByAgent(dbc dbctx.Context, agentID uuid.UUID) error {
	return conn(r.db, dbc).
		Where("agent_id = ?", agentID).
		Delete(&types.Plan{}).Error
}
