package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
)

type InteractionRepo interface {
	Create(dbc dbctx.Context, interaction *types.Interaction) error
	// RecentWithPartner returns the agent's newest interactions with the
	// named partner, newest first, capped at limit.
	RecentWithPartner(dbc dbctx.Context, agentID uuid.UUID, partner string, limit int) ([]*types.Interaction, error)
	// RecentByAgent returns the agent's newest interactions with anyone,
	// newest first, capped at limit.
	RecentByAgent(dbc dbctx.Context, agentID uuid.UUID, limit int) ([]*types.Interaction, error)
	DeleteByAgent(dbc dbctx.Context, agentID uuid.UUID) error
}

type interactionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewInteractionRepo(db *gorm.DB, baseLog *logger.Logger) InteractionRepo {
	return &interactionRepo{db: db, log: baseLog.With("repo", "InteractionRepo")}
}

func (r *interactionRepo) Create(dbc dbctx.Context, interaction *types.Interaction) error {
	return conn(r.db, dbc).Create(interaction).Error
}

func (r *interactionRepo) RecentWithPartner(dbc dbctx.Context, agentID uuid.UUID, partner string, limit int) ([]*types.Interaction, error) {
	var rows []*types.Interaction
	q := conn(r.db, dbc).
		Where("agent_id = ? AND partner = ?", agentID, partner).
		Order("timestamp DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *interactionRepo) RecentByAgent(dbc dbctx.Context, agentID uuid.UUID, limit int) ([]*types.Interaction, error) {
	var rows []*types.Interaction
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

func (r *interactionRepo) DeleteByAgent(dbc dbctx.Context, agentID uuid.UUID) error {
	return conn(r.db, dbc).
		Where("agent_id = ?", agentID).
		Delete(&types.Interaction{}).Error
}
