package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
)

type AgentRepo interface {
	Create(dbc dbctx.Context, agent *types.Agent) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Agent, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Agent, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Agent, error)
	Save(dbc dbctx.Context, agent *types.Agent) error
	Delete(dbc dbctx.Context, id uuid.UUID) error

	// Random returns one agent drawn uniformly from the whole table, or nil
	// when the population is empty.
	Random(dbc dbctx.Context) (*types.Agent, error)
}

type agentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAgentRepo(db *gorm.DB, baseLog *logger.Logger) AgentRepo {
	return &agentRepo{db: db, log: baseLog.With("repo", "AgentRepo")}
}

func (r *agentRepo) Create(dbc dbctx.Context, agent *types.Agent) error {
	return conn(r.db, dbc).Create(agent).Error
}

func (r *agentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Agent, error) {
	var row types.Agent
	err := conn(r.db, dbc).Where("id = ?", id).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *agentRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Agent, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []*types.Agent
	if err := conn(r.db, dbc).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *agentRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.Agent, error) {
	var rows []*types.Agent
	err := conn(r.db, dbc).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *agentRepo) Save(dbc dbctx.Context, agent *types.Agent) error {
	return conn(r.db, dbc).Save(agent).Error
}

func (r *agentRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	return conn(r.db, dbc).Where("id = ?", id).Delete(&types.Agent{}).Error
}

func (r *agentRepo) Random(dbc dbctx.Context) (*types.Agent, error) {
	// random() exists on both Postgres and sqlite.
	var row types.Agent
	err := conn(r.db, dbc).Order("random()").Limit(1).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
