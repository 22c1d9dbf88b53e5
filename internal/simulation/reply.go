package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/velmark/cybercity-backend/internal/clients/llm"
	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/memory"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/realtime"
)

// replyWindow bounds how old a directed message may be and still get a
// reply.
const replyWindow = 5 * time.Minute

// tryReply answers the newest direct message aimed at the agent within the
// reply window. Returns false without touching any state when there is
// nothing to answer, so the caller can initiate a chat instead.
func (e *Engine) tryReply(ctx context.Context, agentID uuid.UUID) (bool, error) {
	var broadcasts []realtime.Message
	replied := false

	err := e.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)

		agent, err := e.agents.GetByID(dbc, agentID)
		if err != nil || agent == nil {
			return err
		}

		since := time.Now().UTC().Add(-replyWindow)
		trigger, err := e.events.LatestDirectedTo(dbc, agent.ID, types.EventTypeDirectChat, since)
		if err != nil {
			return err
		}
		if trigger == nil || trigger.ActorID == nil {
			return nil
		}

		sender, err := e.agents.GetByID(dbc, *trigger.ActorID)
		if err != nil || sender == nil {
			return err
		}

		rel, err := e.relationships.GetOrCreate(dbc, agent.ID, sender.ID)
		if err != nil {
			return err
		}

		recent, err := e.interactions.RecentWithPartner(dbc, agent.ID, sender.Name, 5)
		if err != nil {
			return err
		}
		history := make([]llm.HistoryEntry, 0, len(recent)+1)
		for _, row := range recent {
			from := row.Partner
			if from == "" {
				from = sender.Name
			}
			history = append(history, llm.HistoryEntry{From: from, Text: row.Description})
		}
		history = append(history, llm.HistoryEntry{
			From: sender.Name,
			Text: extractQuoted(trigger.Description),
		})

		memories := memory.Descriptions(e.store.Recent(ctx, agent.ID, 5))

		replyText, ok := e.gen.GenerateMessage(ctx, llm.MessagePrompt{
			SenderName:     agent.Name,
			SenderMood:     agent.Mood,
			SenderTraits:   agent.Traits,
			SenderPersona:  agent.Persona,
			ReceiverName:   sender.Name,
			ReceiverTraits: sender.Traits,
			Affinity:       rel.Affinity,
			Memories:       memories,
			History:        history,
		})
		if !ok || replyText == "" {
			switch {
			case rel.Affinity > 0.3:
				replyText = "Thanks! I'm doing well too."
			case rel.Affinity < -0.3:
				replyText = "Hm, interesting..."
			default:
				replyText = "Got it."
			}
		}

		event := &types.Event{
			Description: fmt.Sprintf("%s replied to %s: %q", agent.Name, sender.Name, replyText),
			Type:        types.EventTypeDirectChat,
			ActorID:     &agent.ID,
			TargetID:    &sender.ID,
		}
		if err := e.events.Create(dbc, event); err != nil {
			return err
		}

		if err := e.interactions.Create(dbc, &types.Interaction{
			AgentID:     agent.ID,
			Partner:     sender.Name,
			Description: replyText,
		}); err != nil {
			return err
		}

		var moodDelta float64
		if rel.Affinity > 0 {
			moodDelta = uniform(e.rng, -0.05, 0.1)
		} else {
			moodDelta = uniform(e.rng, -0.1, 0.05)
		}
		agent.Mood = clampMood(agent.Mood + moodDelta)
		agent.Energy = clampEnergy(agent.Energy + randBetween(e.rng, -3, 2))
		agent.CurrentTask = fmt.Sprintf("replying to %s", sender.Name)

		var affinityDelta float64
		if rel.Affinity >= 0 {
			affinityDelta = uniform(e.rng, 0.02, 0.08)
		} else {
			affinityDelta = uniform(e.rng, -0.05, 0.02)
		}
		rel.Affinity = clamp(rel.Affinity+affinityDelta, -1.0, 1.0)
		rel.Strength = clamp(rel.Strength+0.01, 0.0, 1.0)

		if err := e.agents.Save(dbc, agent); err != nil {
			return err
		}
		if err := e.relationships.Save(dbc, rel); err != nil {
			return err
		}

		var memoryMsg *realtime.Message
		if e.rng.Float64() < 0.4 {
			rec := e.store.Add(ctx, agent.ID,
				fmt.Sprintf("Replied to %s: %s", sender.Name, replyText),
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
			realtime.NewRelationChanged(agent.ID, sender.ID, rel.Affinity, rel.Strength),
		)
		if memoryMsg != nil {
			broadcasts = append(broadcasts, *memoryMsg)
		}
		replied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	for _, msg := range broadcasts {
		e.broadcaster.Broadcast(msg)
	}
	return replied, nil
}
