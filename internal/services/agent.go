package services

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velmark/cybercity-backend/internal/data/repos"
	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/memory"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
	"github.com/velmark/cybercity-backend/internal/realtime"
)

const detailLimit = 20

type AgentCreateInput struct {
	Name        string
	Mood        float64
	Energy      int
	Traits      []string
	Persona     string
	CurrentTask string
}

// AgentDetail is the full agent profile: the row plus its recent plans,
// interactions and memories.
type AgentDetail struct {
	Agent        *types.Agent
	Plans        []*types.Plan
	Interactions []*types.Interaction
	Memories     []memory.Record
}

type AgentService interface {
	List(ctx context.Context, userID uuid.UUID) ([]*types.Agent, error)
	Get(ctx context.Context, userID, agentID uuid.UUID) (*AgentDetail, error)
	// Create stores the agent and joins it to the user's default chat when
	// one exists.
	Create(ctx context.Context, userID uuid.UUID, in AgentCreateInput) (*types.Agent, error)
	// SendMessage records a user-authored message as an event plus a
	// memory for the agent and broadcasts it.
	SendMessage(ctx context.Context, userID, agentID uuid.UUID, message, emotion string) (*types.Event, error)
	// Delete removes the agent and everything hanging off it: chat
	// memberships, events, memories (both stores), plans, interactions
	// and relationships in both directions.
	Delete(ctx context.Context, userID, agentID uuid.UUID) error
}

type agentService struct {
	db           *gorm.DB
	agents       repos.AgentRepo
	events       repos.EventRepo
	memories     repos.MemoryRepo
	interactions repos.InteractionRepo
	plans        repos.PlanRepo
	relations    repos.RelationshipRepo
	chats        repos.GroupChatRepo
	store        memory.Store
	broadcaster  realtime.Broadcaster
	log          *logger.Logger
}

func NewAgentService(
	db *gorm.DB,
	agents repos.AgentRepo,
	events repos.EventRepo,
	memories repos.MemoryRepo,
	interactions repos.InteractionRepo,
	plans repos.PlanRepo,
	relations repos.RelationshipRepo,
	chats repos.GroupChatRepo,
	store memory.Store,
	broadcaster realtime.Broadcaster,
	baseLog *logger.Logger,
) AgentService {
	return &agentService{
		db:           db,
		agents:       agents,
		events:       events,
		memories:     memories,
		interactions: interactions,
		plans:        plans,
		relations:    relations,
		chats:        chats,
		store:        store,
		broadcaster:  broadcaster,
		log:          baseLog.With("service", "AgentService"),
	}
}

// owned loads the agent and checks it belongs to userID.
func (s *agentService) owned(dbc dbctx.Context, userID, agentID uuid.UUID) (*types.Agent, error) {
	agent, err := s.agents.GetByID(dbc, agentID)
	if err != nil {
		return nil, err
	}
	if agent == nil {
		return nil, ErrNotFound
	}
	if agent.UserID != userID {
		return nil, ErrAccessDenied
	}
	return agent, nil
}

func (s *agentService) List(ctx context.Context, userID uuid.UUID) ([]*types.Agent, error) {
	return s.agents.ListByUser(dbctx.New(ctx), userID)
}

func (s *agentService) Get(ctx context.Context, userID, agentID uuid.UUID) (*AgentDetail, error) {
	dbc := dbctx.New(ctx)
	agent, err := s.owned(dbc, userID, agentID)
	if err != nil {
		return nil, err
	}

	plans, err := s.plans.ListByAgent(dbc, agent.ID)
	if err != nil {
		return nil, err
	}
	if len(plans) > detailLimit {
		plans = plans[:detailLimit]
	}
	recent, err := s.interactions.RecentByAgent(dbc, agent.ID, detailLimit)
	if err != nil {
		return nil, err
	}

	return &AgentDetail{
		Agent:        agent,
		Plans:        plans,
		Interactions: recent,
		Memories:     s.store.Recent(ctx, agent.ID, detailLimit),
	}, nil
}

func (s *agentService) Create(ctx context.Context, userID uuid.UUID, in AgentCreateInput) (*types.Agent, error) {
	agent := &types.Agent{
		Name:        in.Name,
		Mood:        in.Mood,
		Energy:      in.Energy,
		Traits:      in.Traits,
		Persona:     in.Persona,
		CurrentTask: in.CurrentTask,
		UserID:      userID,
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		if err := s.agents.Create(dbc, agent); err != nil {
			return err
		}
		defaultChat, err := s.chats.DefaultForUser(dbc, userID)
		if err != nil {
			return err
		}
		if defaultChat != nil {
			return s.chats.AddAgent(dbc, defaultChat.ID, agent.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("agent created", "agentID", agent.ID, "name", agent.Name, "userID", userID)
	return agent, nil
}

func (s *agentService) SendMessage(ctx context.Context, userID, agentID uuid.UUID, message, emotion string) (*types.Event, error) {
	var event *types.Event

	err := s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		agent, err := s.owned(dbc, userID, agentID)
		if err != nil {
			return err
		}

		event = &types.Event{
			Description: message,
			Type:        types.EventTypeMessage,
			ActorID:     &agent.ID,
		}
		if err := s.events.Create(dbc, event); err != nil {
			return err
		}
		return s.memories.Create(dbc, &types.Memory{
			AgentID:     agent.ID,
			Description: message,
			Emotion:     emotion,
		})
	})
	if err != nil {
		return nil, err
	}

	s.store.Add(ctx, agentID, message, emotion)
	s.broadcaster.Broadcast(realtime.NewEventCreated(event.ID, event.Description, event.CreatedAt))
	s.log.Info("message sent to agent", "agentID", agentID, "eventID", event.ID)
	return event, nil
}

func (s *agentService) Delete(ctx context.Context, userID, agentID uuid.UUID) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		agent, err := s.owned(dbc, userID, agentID)
		if err != nil {
			return err
		}

		if err := s.chats.RemoveAgentEverywhere(dbc, agent.ID); err != nil {
			return err
		}
		if err := s.events.DeleteByAgent(dbc, agent.ID); err != nil {
			return err
		}
		if err := s.memories.DeleteByAgent(dbc, agent.ID); err != nil {
			return err
		}
		if err := s.plans.DeleteByAgent(dbc, agent.ID); err != nil {
			return err
		}
		if err := s.interactions.DeleteByAgent(dbc, agent.ID); err != nil {
			return err
		}
		if err := s.relations.DeleteByAgent(dbc, agent.ID); err != nil {
			return err
		}
		return s.agents.Delete(dbc, agent.ID)
	})
	if err != nil {
		return err
	}

	s.store.DeleteAgent(ctx, agentID)
	s.broadcaster.Broadcast(realtime.NewAgentDeleted(agentID))
	s.log.Info("agent deleted", "agentID", agentID, "userID", userID)
	return nil
}
