package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velmark/cybercity-backend/internal/data/repos"
	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
	"github.com/velmark/cybercity-backend/internal/realtime"
)

const eventFeedLimit = 200

type EventCreateInput struct {
	Description string
	Type        string
	ActorID     *uuid.UUID
	TargetID    *uuid.UUID
}

type EventService interface {
	// List returns the user's event feed, capped at 200 rows.
	List(ctx context.Context, userID uuid.UUID) ([]*types.Event, error)
	// Create records a custom event; any referenced agents must belong to
	// the user.
	Create(ctx context.Context, userID uuid.UUID, in EventCreateInput) (*types.Event, error)
}

type eventService struct {
	db          *gorm.DB
	events      repos.EventRepo
	agents      repos.AgentRepo
	broadcaster realtime.Broadcaster
	log         *logger.Logger
}

func NewEventService(db *gorm.DB, events repos.EventRepo, agents repos.AgentRepo, broadcaster realtime.Broadcaster, baseLog *logger.Logger) EventService {
	return &eventService{
		db:          db,
		events:      events,
		agents:      agents,
		broadcaster: broadcaster,
		log:         baseLog.With("service", "EventService"),
	}
}

func (s *eventService) List(ctx context.Context, userID uuid.UUID) ([]*types.Event, error) {
	return s.events.ListForUser(dbctx.New(ctx), userID, eventFeedLimit)
}

func (s *eventService) checkAgent(dbc dbctx.Context, userID uuid.UUID, agentID *uuid.UUID) error {
	if agentID == nil {
		return nil
	}
	agent, err := s.agents.GetByID(dbc, *agentID)
	if err != nil {
		return err
	}
	if agent == nil || agent.UserID != userID {
		return ErrAccessDenied
	}
	return nil
}

func (s *eventService) Create(ctx context.Context, userID uuid.UUID, in EventCreateInput) (*types.Event, error) {
	eventType := in.Type
	if eventType == "" {
		eventType = types.EventTypeCustom
	}
	event := &types.Event{
		Description: in.Description,
		Type:        eventType,
		ActorID:     in.ActorID,
		TargetID:    in.TargetID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		if err := s.checkAgent(dbc, userID, in.ActorID); err != nil {
			return err
		}
		if err := s.checkAgent(dbc, userID, in.TargetID); err != nil {
			return err
		}
		return s.events.Create(dbc, event)
	})
	if err != nil {
		return nil, err
	}

	s.broadcaster.Broadcast(realtime.NewEventCreated(event.ID, event.Description, event.CreatedAt))
	s.log.Info("custom event created", "eventID", event.ID, "type", event.Type, "userID", userID)
	return event, nil
}
