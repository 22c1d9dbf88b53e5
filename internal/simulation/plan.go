package simulation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
)

var planDescriptions = []string{
	"Plans to study new technologies and sharpen skills",
	"Wants to improve relations with other residents of the city",
	"Plans to explore different places and find something interesting",
	"Wants to develop conversation and cooperation skills",
	"Plans to help other agents with their affairs",
}

func planTitlesPositive(chatName string) []string {
	return []string{
		"Study new technologies",
		"Improve relations with other agents",
		fmt.Sprintf("Explore %s", chatName),
		"Develop conversation skills",
		"Find interesting places in the city",
		"Help other agents",
		"Study the history of the cyber city",
	}
}

func planTitlesNeutral(chatName string) []string {
	return []string{
		"Study new technologies",
		"Improve relations with other agents",
		fmt.Sprintf("Explore %s", chatName),
		"Develop conversation skills",
		"Find interesting places",
	}
}

var planTitlesNegative = []string{
	"Lift the mood",
	"Find support",
	"Get some rest",
	"Sort out problems",
	"Recover energy",
}

// maybePlan gives the agent a new plan when it has no open one, or with a
// small chance stacks another on top. Plans are internal state and are not
// broadcast.
func (e *Engine) maybePlan(ctx context.Context, agentID uuid.UUID) error {
	return e.db.Transaction(func(tx *gorm.DB) error {
		dbc := dbctx.WithTx(ctx, tx)

		agent, err := e.agents.GetByID(dbc, agentID)
		if err != nil || agent == nil {
			return err
		}

		existing, err := e.plans.FirstOpen(dbc, agent.ID)
		if err != nil {
			return err
		}
		if existing != nil && e.rng.Float64() >= 0.1 {
			return nil
		}

		chatName := "the city"
		if chatIDs, err := e.groupChats.ChatIDsForAgent(dbc, agent.ID); err == nil && len(chatIDs) > 0 {
			if chat, err := e.groupChats.GetByID(dbc, chatIDs[0]); err == nil && chat != nil {
				chatName = chat.Name
			}
		}

		var titles []string
		switch {
		case agent.Mood > 0.7:
			titles = planTitlesPositive(chatName)
		case agent.Mood < 0.4:
			titles = planTitlesNegative
		default:
			titles = planTitlesNeutral(chatName)
		}

		status := types.PlanStatusActive
		if e.rng.Float64() >= 0.7 {
			status = types.PlanStatusPlanned
		}

		plan := &types.Plan{
			AgentID:     agent.ID,
			Title:       titles[e.rng.Intn(len(titles))],
			Description: planDescriptions[e.rng.Intn(len(planDescriptions))],
			Status:      status,
		}
		if err := e.plans.Create(dbc, plan); err != nil {
			return err
		}
		e.log.Info("plan created", "agent", agent.Name, "title", plan.Title, "planID", plan.ID)
		return nil
	})
}
