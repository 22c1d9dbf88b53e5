package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/velmark/cybercity-backend/internal/domain"
	"github.com/velmark/cybercity-backend/internal/http/response"
	"github.com/velmark/cybercity-backend/internal/services"
)

type GroupChatHandler struct {
	chats services.GroupChatService
}

func NewGroupChatHandler(chats services.GroupChatService) *GroupChatHandler {
	return &GroupChatHandler{chats: chats}
}

type groupChatResponse struct {
	*types.GroupChat
	AgentIDs []uuid.UUID `json:"agent_ids"`
}

func chatResponse(v *services.GroupChatView) groupChatResponse {
	ids := v.AgentIDs
	if ids == nil {
		ids = []uuid.UUID{}
	}
	return groupChatResponse{GroupChat: v.Chat, AgentIDs: ids}
}

// POST /api/group-chats
func (gh *GroupChatHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Name        string      `json:"name" binding:"required"`
		Description string      `json:"description"`
		AgentIDs    []uuid.UUID `json:"agent_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := gh.chats.Create(c.Request.Context(), userID, services.GroupChatCreateInput{
		Name:        req.Name,
		Description: req.Description,
		AgentIDs:    req.AgentIDs,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondCreated(c, chatResponse(view))
}

// GET /api/group-chats
func (gh *GroupChatHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	views, err := gh.chats.List(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	out := make([]groupChatResponse, 0, len(views))
	for _, v := range views {
		out = append(out, chatResponse(v))
	}
	response.RespondOK(c, out)
}

// GET /api/group-chats/:id
func (gh *GroupChatHandler) Get(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	chatID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	view, err := gh.chats.Get(c.Request.Context(), userID, chatID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, chatResponse(view))
}

// PUT /api/group-chats/:id
func (gh *GroupChatHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	chatID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Name        *string      `json:"name"`
		Description *string      `json:"description"`
		AgentIDs    *[]uuid.UUID `json:"agent_ids"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	view, err := gh.chats.Update(c.Request.Context(), userID, chatID, services.GroupChatUpdateInput{
		Name:        req.Name,
		Description: req.Description,
		AgentIDs:    req.AgentIDs,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, chatResponse(view))
}

// DELETE /api/group-chats/:id
func (gh *GroupChatHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	chatID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if err := gh.chats.Delete(c.Request.Context(), userID, chatID); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/group-chats/:id/message
func (gh *GroupChatHandler) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	chatID, ok := parseIDParam(c, "id")
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
	events, err := gh.chats.SendMessage(c.Request.Context(), userID, chatID, req.Message, req.Emotion)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"delivered": len(events), "events": events})
}
