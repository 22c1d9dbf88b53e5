package repos

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/platform/logger"
)

type GroupChatRepo interface {
	Create(dbc dbctx.Context, chat *types.GroupChat) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GroupChat, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.GroupChat, error)
	Save(dbc dbctx.Context, chat *types.GroupChat) error
	Delete(dbc dbctx.Context, id uuid.UUID) error

	// DefaultForUser returns the user's chat named types.DefaultGroupChatName,
	// or nil when it does not exist.
	DefaultForUser(dbc dbctx.Context, userID uuid.UUID) (*types.GroupChat, error)

	AddAgent(dbc dbctx.Context, chatID, agentID uuid.UUID) error
	// ReplaceAgents swaps the full membership of a chat for the given set.
	ReplaceAgents(dbc dbctx.Context, chatID uuid.UUID, agentIDs []uuid.UUID) error
	// RemoveAgentEverywhere drops the agent from every chat it belongs to.
	RemoveAgentEverywhere(dbc dbctx.Context, agentID uuid.UUID) error
	AgentIDs(dbc dbctx.Context, chatID uuid.UUID) ([]uuid.UUID, error)
	ChatIDsForAgent(dbc dbctx.Context, agentID uuid.UUID) ([]uuid.UUID, error)
}

type groupChatRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGroupChatRepo(db *gorm.DB, baseLog *logger.Logger) GroupChatRepo {
	return &groupChatRepo{db: db, log: baseLog.With("repo", "GroupChatRepo")}
}

func (r *groupChatRepo) Create(dbc dbctx.Context, chat *types.GroupChat) error {
	return conn(r.db, dbc).Create(chat).Error
}

func (r *groupChatRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.GroupChat, error) {
	var row types.GroupChat
	err := conn(r.db, dbc).Where("id = ?", id).First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *groupChatRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.GroupChat, error) {
	var rows []*types.GroupChat
	err := conn(r.db, dbc).
		Where("created_by_user_id = ?", userID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *groupChatRepo) Save(dbc dbctx.Context, chat *types.GroupChat) error {
	return conn(r.db, dbc).Save(chat).Error
}

func (r *groupChatRepo) Delete(dbc dbctx.Context, id uuid.UUID) error {
	if err := conn(r.db, dbc).
		Where("group_chat_id = ?", id).
		Delete(&types.GroupChatAgent{}).Error; err != nil {
		return err
	}
	return conn(r.db, dbc).
		Where("id = ?", id).
		Delete(&types.GroupChat{}).Error
}

func (r *groupChatRepo) DefaultForUser(dbc dbctx.Context, userID uuid.UUID) (*types.GroupChat, error) {
	var row types.GroupChat
	err := conn(r.db, dbc).
		Where("created_by_user_id = ? AND name = ?", userID, types.DefaultGroupChatName).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (r *groupChatRepo) AddAgent(dbc dbctx.Context, chatID, agentID uuid.UUID) error {
	var count int64
	err := conn(r.db, dbc).Model(&types.GroupChatAgent{}).
		Where("group_chat_id = ? AND agent_id = ?", chatID, agentID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	return conn(r.db, dbc).Create(&types.GroupChatAgent{
		GroupChatID: chatID,
		AgentID:     agentID,
	}).Error
}

func (r *groupChatRepo) ReplaceAgents(dbc dbctx.Context, chatID uuid.UUID, agentIDs []uuid.UUID) error {
	if err := conn(r.db, dbc).
		Where("group_chat_id = ?", chatID).
		Delete(&types.GroupChatAgent{}).Error; err != nil {
		return err
	}
	for _, agentID := range agentIDs {
		if err := conn(r.db, dbc).Create(&types.GroupChatAgent{
			GroupChatID: chatID,
			AgentID:     agentID,
		}).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *groupChatRepo) RemoveAgentEverywhere(dbc dbctx.Context, agentID uuid.UUID) error {
	return conn(r.db, dbc).
		Where("agent_id = ?", agentID).
		Delete(&types.GroupChatAgent{}).Error
}

func (r *groupChatRepo) AgentIDs(dbc dbctx.Context, chatID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := conn(r.db, dbc).Model(&types.GroupChatAgent{}).
		Where("group_chat_id = ?", chatID).
		Pluck("agent_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *groupChatRepo) ChatIDsForAgent(dbc dbctx.Context, agentID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := conn(r.db, dbc).Model(&types.GroupChatAgent{}).
		Where("agent_id = ?", agentID).
		Pluck("group_chat_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
