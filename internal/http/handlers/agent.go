package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/http/response"
	"github.com/velmark/cybercity-backend/internal/memory"
	"github.com/velmark/cybercity-backend/internal/services"
)

type AgentHandler struct {
	agents services.AgentService
}

func NewAgentHandler(agents services.AgentService) *AgentHandler {
	return &AgentHandler{agents: agents}
}

// agentDetailResponse flattens the agent row next to its recent history.
type agentDetailResponse struct {
	*types.Agent
	Plans        []*types.Plan        `json:"plans"`
	Interactions []*types.Interaction `json:"interactions"`
	Memories     []memory.Record      `json:"memories"`
}

// GET /api/agents
func (ah *AgentHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	agents, err := ah.agents.List(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, agents)
}

// GET /api/agents/:id
func (ah *AgentHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	agentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	detail, err := ah.agents.Get(c.Request.Context(), userID, agentID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, agentDetailResponse{
		Agent:        detail.Agent,
		Plans:        detail.Plans,
		Interactions: detail.Interactions,
		Memories:     detail.Memories,
	})
}

// POST /api/agents
func (ah *AgentHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Name        string   `json:"name" binding:"required"`
		Mood        *float64 `json:"mood"`
		Energy      *int     `json:"energy"`
		Traits      []string `json:"traits"`
		Persona     string   `json:"persona"`
		CurrentTask string   `json:"current_task"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	in := services.AgentCreateInput{
		Name:        req.Name,
		Mood:        0.5,
		Energy:      100,
		Traits:      req.Traits,
		Persona:     req.Persona,
		CurrentTask: req.CurrentTask,
	}
	if req.Mood != nil {
		in.Mood = *req.Mood
	}
	if req.Energy != nil {
		in.Energy = *req.Energy
	}
	agent, err := ah.agents.Create(c.Request.Context(), userID, in)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondCreated(c, agent)
}

// POST /api/agents/:id/message
func (ah *AgentHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	agentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message" binding:"required"`
		Emotion string `json:"emotion"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if req.Emotion == "" {
		req.Emotion = "neutral"
	}
	event, err := ah.agents.SendMessage(c.Request.Context(), userID, agentID, req.Message, req.Emotion)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, event)
}

// DELETE /api/agents/:id
func (ah *AgentHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	agentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := ah.agents.Delete(c.Request.Context(), userID, agentID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
