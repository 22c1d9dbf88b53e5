package repos

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
)

type EventRepo interface {
	Create(dbc dbctx.Context, event *types.Event) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Event, error)
	// LatestDirectedTo fetches the newest event of the given type aimed at
	// the agent and created at or after the cutoff. Returns nil when no row
	// qualifies.
	LatestDirectedTo(dbc dbctx.Context, targetID uuid.UUID, eventType string, since time.Time) (*types.Event, error)
	// ListForUser returns events whose actor belongs to the user, oldest
	// first, capped at limit.
	ListForUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Event, error)
	DeleteByAgent(dbc dbctx.Context, agentID uuid.UUID) error
}

type eventRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEventRepo(db *gorm.DB, baseLog *logger.Logger) EventRepo {
	return &eventRepo{db: db, log: baseLog.With("repo", "EventRepo")}
}

func (r *eventRepo) Create(dbc dbctx.Context, event *types.Event) error {
	return conn(r.db, dbc).Create(event).Error
}

func (r *eventRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Event, error) {
	var row types.Event
	err := conn(r.db, dbc).Where("id = ?", id).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *eventRepo) LatestDirectedTo(dbc dbctx.Context, targetID uuid.UUID, eventType string, since time.Time) (*types.Event, error) {
	var row types.Event
	err := conn(r.db, dbc).
		Where("target_id = ? AND type = ? AND created_at >= ?", targetID, eventType, since).
		Order("created_at DESC").
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *eventRepo) ListForUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.Event, error) {
	var rows []*types.Event
	err := conn(r.db, dbc).
		Joins("JOIN agents ON agents.id = events.actor_id").
		Where("agents.user_id = ?", userID).
		Order("events.created_at ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *eventRepo) DeleteByAgent(dbc dbctx.Context, agentID uuid.UUID) error {
	return conn(r.db, dbc).
		Where("actor_id = ? OR target_id = ?", agentID, agentID).
		Delete(&types.Event{}).Error
}
