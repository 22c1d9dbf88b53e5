package services

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/velmark/cybercity-backend/internal/data/repos"
	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/memory"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
	"github.com/velmark/cybercity-backend/internal/realtime"
)

type GroupChatCreateInput struct {
	Name        string
	Description string
	AgentIDs    []uuid.UUID
}

type GroupChatUpdateInput struct {
	Name        *string
	Description *string
	AgentIDs    *[]uuid.UUID
}

// GroupChatView is a chat row plus its member agent IDs.
type GroupChatView struct {
	Chat     *types.GroupChat
	AgentIDs []uuid.UUID
}

type GroupChatService interface {
	Create(ctx context.Context, userID uuid.UUID, in GroupChatCreateInput) (*GroupChatView, error)
	List(ctx context.Context, userID uuid.UUID) ([]*GroupChatView, error)
	Get(ctx context.Context, userID, chatID uuid.UUID) (*GroupChatView, error)
	Update(ctx context.Context, userID, chatID uuid.UUID, in GroupChatUpdateInput) (*GroupChatView, error)
	Delete(ctx context.Context, userID, chatID uuid.UUID) error
	// SendMessage fans a user message into the chat: one event and one
	// memory per member agent, each broadcast after commit.
	SendMessage(ctx context.Context, userID, chatID uuid.UUID, message, emotion string) ([]*types.Event, error)
}

type groupChatService struct {
	db          *gorm.DB
	chats       repos.GroupChatRepo
	agents      repos.AgentRepo
	events      repos.EventRepo
	memories    repos.MemoryRepo
	store       memory.Store
	broadcaster realtime.Broadcaster
	log         *logger.Logger
}

func NewGroupChatService(
	db *gorm.DB,
	chats repos.GroupChatRepo,
	agents repos.AgentRepo,
	events repos.EventRepo,
	memories repos.MemoryRepo,
	store memory.Store,
	broadcaster realtime.Broadcaster,
	baseLog *logger.Logger,
) GroupChatService {
	return &groupChatService{
		db:          db,
		chats:       chats,
		agents:      agents,
		events:      events,
		memories:    memories,
		store:       store,
		broadcaster: broadcaster,
		log:         baseLog.With("service", "GroupChatService"),
	}
}

// ownedChat loads the chat and verifies ownership.
func (s *groupChatService) ownedChat(dbc dbctx.Context, userID, chatID uuid.UUID) (*types.GroupChat, error) {
	chat, err := s.chats.GetByID(dbc, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrNotFound
	}
	if chat.CreatedByUserID != userID {
		return nil, ErrAccessDenied
	}
	return chat, nil
}

// validateAgents checks every requested agent exists and belongs to the
// user.
func (s *groupChatService) validateAgents(dbc dbctx.Context, userID uuid.UUID, agentIDs []uuid.UUID) error {
	if len(agentIDs) == 0 {
		return nil
	}
	agents, err := s.agents.GetByIDs(dbc, agentIDs)
	if err != nil {
		return err
	}
	owned := make(map[uuid.UUID]bool, len(agents))
	for _, a := range agents {
		if a.UserID == userID {
			owned[a.ID] = true
		}
	}
	for _, id := range agentIDs {
		if !owned[id] {
			return ErrInvalidAgents
		}
	}
	return nil
}

func (s *groupChatService) view(dbc dbctx.Context, chat *types.GroupChat) (*GroupChatView, error) {
	ids, err := s.chats.AgentIDs(dbc, chat.ID)
	if err != nil {
		return nil, err
	}
	return &GroupChatView{Chat: chat, AgentIDs: ids}, nil
}

func (s *groupChatService) Create(ctx context.Context, userID uuid.UUID, in GroupChatCreateInput) (*GroupChatView, error) {
	chat := &types.GroupChat{
		Name:            in.Name,
		Description:     in.Description,
		CreatedByUserID: userID,
		IsActive:        true,
	}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		if err := s.validateAgents(dbc, userID, in.AgentIDs); err != nil {
			return err
		}
		if err := s.chats.Create(dbc, chat); err != nil {
			return err
		}
		for _, agentID := range in.AgentIDs {
			if err := s.chats.AddAgent(dbc, chat.ID, agentID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("group chat created", "chatID", chat.ID, "name", chat.Name, "userID", userID, "agents", len(in.AgentIDs))
	return &GroupChatView{Chat: chat, AgentIDs: in.AgentIDs}, nil
}

func (s *groupChatService) List(ctx context.Context, userID uuid.UUID) ([]*GroupChatView, error) {
	dbc := dbctx.New(ctx)
	chats, err := s.chats.ListByUser(dbc, userID)
	if err != nil {
		return nil, err
	}
	out := make([]*GroupChatView, 0, len(chats))
	for _, chat := range chats {
		v, err := s.view(dbc, chat)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *groupChatService) Get(ctx context.Context, userID, chatID uuid.UUID) (*GroupChatView, error) {
	dbc := dbctx.New(ctx)
	chat, err := s.ownedChat(dbc, userID, chatID)
	if err != nil {
		return nil, err
	}
	return s.view(dbc, chat)
}

func (s *groupChatService) Update(ctx context.Context, userID, chatID uuid.UUID, in GroupChatUpdateInput) (*GroupChatView, error) {
	var view *GroupChatView
	err := s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		chat, err := s.ownedChat(dbc, userID, chatID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			chat.Name = *in.Name
		}
		if in.Description != nil {
			chat.Description = *in.Description
		}
		if in.AgentIDs != nil {
			if err := s.validateAgents(dbc, userID, *in.AgentIDs); err != nil {
				return err
			}
			if err := s.chats.ReplaceAgents(dbc, chat.ID, *in.AgentIDs); err != nil {
				return err
			}
		}
		if err := s.chats.Save(dbc, chat); err != nil {
			return err
		}
		view, err = s.view(dbc, chat)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("group chat updated", "chatID", chatID, "userID", userID)
	return view, nil
}

func (s *groupChatService) Delete(ctx context.Context, userID, chatID uuid.UUID) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		if _, err := s.ownedChat(dbc, userID, chatID); err != nil {
			return err
		}
		return s.chats.Delete(dbc, chatID)
	})
	if err != nil {
		return err
	}
	s.log.Info("group chat deleted", "chatID", chatID, "userID", userID)
	return nil
}

func (s *groupChatService) SendMessage(ctx context.Context, userID, chatID uuid.UUID, message, emotion string) ([]*types.Event, error) {
	var events []*types.Event

	err := s.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)
		chat, err := s.ownedChat(dbc, userID, chatID)
		if err != nil {
			return err
		}

		memberIDs, err := s.chats.AgentIDs(dbc, chat.ID)
		if err != nil {
			return err
		}
		if len(memberIDs) == 0 {
			return ErrEmptyChat
		}

		meta, err := json.Marshal(map[string]string{"group_chat_id": chat.ID.String()})
		if err != nil {
			return err
		}

		members, err := s.agents.GetByIDs(dbc, memberIDs)
		if err != nil {
			return err
		}
		for _, agent := range members {
			event := &types.Event{
				Description: message,
				Type:        types.EventTypeMessage,
				ActorID:     &agent.ID,
				Metadata:    datatypes.JSON(meta),
			}
			if err := s.events.Create(dbc, event); err != nil {
				return err
			}
			if err := s.memories.Create(dbc, &types.Memory{
				AgentID:     agent.ID,
				Description: message,
				Emotion:     emotion,
			}); err != nil {
				return err
			}
			s.store.Add(ctx, agent.ID, message, emotion)
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, event := range events {
		s.broadcaster.Broadcast(realtime.NewEventCreated(event.ID, event.Description, event.CreatedAt))
	}
	s.log.Info("group message sent", "chatID", chatID, "userID", userID, "events", len(events))
	return events, nil
}
