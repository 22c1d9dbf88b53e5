package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
)

type RelationshipRepo interface {
	// GetOrCreate looks up the directed edge (source -> target) and inserts
	// it with affinity 0.0 and strength 0.5 when absent. Idempotent per
	// ordered pair: lookup-then-insert, so a second call inside the same
	// transaction sees the first call's row.
	GetOrCreate(dbc dbctx.Context, source, target uuid.UUID) (*types.Relationship, error)
	Save(dbc dbctx.Context, rel *types.Relationship) error
	ListTouching(dbc dbctx.Context, agentIDs []uuid.UUID) ([]*types.Relationship, error)
	DeleteByAgent(dbc dbctx.Context, agentID uuid.UUID) error
}

type relationshipRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRelationshipRepo(db *gorm.DB, baseLog *logger.Logger) RelationshipRepo {
	return &relationshipRepo{db: db, log: baseLog.With("repo", "RelationshipRepo")}
}

func (r *relationshipRepo) GetOrCreate(dbc dbctx.Context, source, target uuid.UUID) (*types.Relationship, error) {
	var row types.Relationship
	err := conn(r.db, dbc).
		Where("source_agent_id = ? AND target_agent_id = ?", source, target).
		First(&row).Error
	if err == nil {
		return &row, nil
	}
	if err != gorm.ErrRecordNotFound {
		return nil, err
	}
	row = types.Relationship{
		SourceAgentID: source,
		TargetAgentID: target,
		Affinity:      0.0,
		Strength:      0.5,
	}
	if err := conn(r.db, dbc).Create(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *relationshipRepo) Save(dbc dbctx.Context, rel *types.Relationship) error {
	return conn(r.db, dbc).Save(rel).Error
}

func (r *relationshipRepo) ListTouching(dbc dbctx.Context, agentIDs []uuid.UUID) ([]*types.Relationship, error) {
	if len(agentIDs) == 0 {
		return nil, nil
	}
	var rows []*types.Relationship
	err := conn(r.db, dbc).
		Where("source_agent_id IN ? OR target_agent_id IN ?", agentIDs, agentIDs).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *relationshipRepo) DeleteByAgent(dbc dbctx.Context, agentID uuid.UUID) error {
	return conn(r.db, dbc).
		Where("source_agent_id = ? OR target_agent_id = ?", agentID, agentID).
		Delete(&types.Relationship{}).Error
}
