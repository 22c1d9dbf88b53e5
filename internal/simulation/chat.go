package simulation

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/velmark/cybercity-backend/internal/clients/llm"
	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/memory"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/realtime"
)

// similaritySearcher is the optional extension of memory.Store used to pull
// topic-relevant memories instead of plain recency when the backend can.
type similaritySearcher interface {
	Similar(ctx context.Context, agentID uuid.UUID, query string, limit int) []memory.Record
}

func (e *Engine) memoriesForTopic(ctx context.Context, agentID uuid.UUID, topic string) []string {
	if s, ok := e.store.(similaritySearcher); ok {
		return memory.Descriptions(s.Similar(ctx, agentID, topic, 5))
	}
	return memory.Descriptions(e.store.Recent(ctx, agentID, 5))
}

// initiateChat has the agent write one message into a random group chat it
// belongs to. The message nudges the sender's mood and energy, touches the
// sender's relationship with every other member, costs each member a bit
// of energy, and sometimes lands in the sender's memory. An agent with no
// chats, or alone in its chat, does nothing.
func (e *Engine) initiateChat(ctx context.Context, agentID uuid.UUID) error {
	var broadcasts []realtime.Message

	err := e.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)

		agent, err := e.agents.GetByID(dbc, agentID)
		if err != nil || agent == nil {
			return err
		}

		chatIDs, err := e.groupChats.ChatIDsForAgent(dbc, agent.ID)
		if err != nil {
			return err
		}
		if len(chatIDs) == 0 {
			e.log.Debug("agent belongs to no group chat", "agent", agent.Name)
			return nil
		}
		chatID := chatIDs[e.rng.Intn(len(chatIDs))]

		memberIDs, err := e.groupChats.AgentIDs(dbc, chatID)
		if err != nil {
			return err
		}
		others := make([]uuid.UUID, 0, len(memberIDs))
		for _, id := range memberIDs {
			if id != agent.ID {
				others = append(others, id)
			}
		}
		// nobody to talk to
		if len(others) == 0 {
			return nil
		}

		chat, err := e.groupChats.GetByID(dbc, chatID)
		if err != nil || chat == nil {
			return err
		}

		topic := fmt.Sprintf("Chat: %s", chat.Name)
		if chat.Description != "" {
			topic += " - " + chat.Description
		} else {
			topic += " - chatting"
		}

		memories := e.memoriesForTopic(ctx, agent.ID, topic)

		messageText, ok := e.gen.GenerateMessage(ctx, llm.MessagePrompt{
			SenderName:    agent.Name,
			SenderMood:    agent.Mood,
			SenderTraits:  agent.Traits,
			SenderPersona: agent.Persona,
			ReceiverName:  "chat members",
			Affinity:      0.0,
			Memories:      memories,
			TopicHint:     topic,
		})
		if !ok || messageText == "" {
			messageText = "Shared a thought in chat: " + topic
		}

		meta, err := json.Marshal(map[string]string{
			"topic":         topic,
			"topic_source":  "group chat",
			"group_chat_id": chat.ID.String(),
		})
		if err != nil {
			return err
		}

		event := &types.Event{
			Description: fmt.Sprintf("%s wrote in chat %q: %q", agent.Name, chat.Name, messageText),
			Type:        types.EventTypeGroupChat,
			ActorID:     &agent.ID,
			Metadata:    datatypes.JSON(meta),
		}
		if err := e.events.Create(dbc, event); err != nil {
			return err
		}

		agent.Mood = clampMood(agent.Mood + uniform(e.rng, -0.05, 0.1))
		agent.Energy = clampEnergy(agent.Energy + randBetween(e.rng, -3, 2))
		agent.CurrentTask = fmt.Sprintf("chatting in %q", chat.Name)

		members, err := e.agents.GetByIDs(dbc, others)
		if err != nil {
			return err
		}

		type relUpdate struct {
			memberID uuid.UUID
			rel      *types.Relationship
		}
		var relUpdates []relUpdate

		for _, member := range members {
			rel, err := e.relationships.GetOrCreate(dbc, agent.ID, member.ID)
			if err != nil {
				return err
			}

			affinityDelta := uniform(e.rng, 0.01, 0.04)
			// friendships reinforce faster
			if rel.Affinity > 0 {
				affinityDelta *= 1.5
			}
			rel.Affinity = clamp(rel.Affinity+affinityDelta, -1.0, 1.0)
			rel.Strength = clamp(rel.Strength+0.01, 0.0, 1.0)
			if err := e.relationships.Save(dbc, rel); err != nil {
				return err
			}
			relUpdates = append(relUpdates, relUpdate{memberID: member.ID, rel: rel})

			if err := e.interactions.Create(dbc, &types.Interaction{
				AgentID:     member.ID,
				Partner:     agent.Name,
				Description: fmt.Sprintf("Heard a message in chat %q: %s", chat.Name, truncate(messageText, 100)),
			}); err != nil {
				return err
			}

			// members react to the sender according to how they relate
			member.Mood = clampMood(member.Mood + rel.Affinity*0.02)
			member.Energy = clampEnergy(member.Energy - 1)
			if err := e.agents.Save(dbc, member); err != nil {
				return err
			}
		}

		if err := e.interactions.Create(dbc, &types.Interaction{
			AgentID:     agent.ID,
			Partner:     fmt.Sprintf("members of chat %q", chat.Name),
			Description: fmt.Sprintf("Wrote in chat %q: %s", chat.Name, truncate(messageText, 100)),
		}); err != nil {
			return err
		}

		// larger audiences feel better to talk to
		participantsBonus := float64(len(memberIDs)) * 0.01
		agent.Mood = clampMood(agent.Mood + uniform(e.rng, -0.03, 0.08) + participantsBonus)
		if err := e.agents.Save(dbc, agent); err != nil {
			return err
		}

		var memoryMsg *realtime.Message
		if e.rng.Float64() < 0.5 {
			rec := e.store.Add(ctx, agent.ID,
				fmt.Sprintf("Chatted in %q: %s", chat.Name, messageText),
				emotionFromMood(agent.Mood))
			if err := e.memories.Create(dbc, &types.Memory{
				AgentID:       agent.ID,
				Description:   rec.Description,
				Emotion:       rec.Emotion,
				SourceEventID: &event.ID,
				Timestamp:     rec.Timestamp,
			}); err != nil {
				return err
			}
			m := realtime.NewMemoryCreated(agent.ID, rec.ID, rec.Description, rec.Emotion, rec.Timestamp)
			memoryMsg = &m
		}

		broadcasts = append(broadcasts,
			realtime.NewEventCreated(event.ID, event.Description, event.CreatedAt),
			realtime.NewAgentUpdate(agent.ID, agent.Mood, agent.Energy),
		)
		for _, u := range relUpdates {
			broadcasts = append(broadcasts,
				realtime.NewRelationChanged(agent.ID, u.memberID, u.rel.Affinity, u.rel.Strength))
		}
		for _, member := range members {
			broadcasts = append(broadcasts,
				realtime.NewAgentUpdate(member.ID, member.Mood, member.Energy))
		}
		if memoryMsg != nil {
			broadcasts = append(broadcasts, *memoryMsg)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, msg := range broadcasts {
		e.broadcaster.Broadcast(msg)
	}
	return nil
}
