package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/velmark/cybercity-backend/internal/http/response"
	"github.com/velmark/cybercity-backend/internal/services"
)

type EventHandler struct {
	events services.EventService
}

func NewEventHandler(events services.EventService) *EventHandler {
	return &EventHandler{events: events}
}

// GET /api/events
func (eh *EventHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	events, err := eh.events.List(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, events)
}

// POST /api/events
func (eh *EventHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req struct {
		Description string     `json:"description" binding:"required"`
		Type        string     `json:"type"`
		ActorID     *uuid.UUID `json:"actor_id"`
		TargetID    *uuid.UUID `json:"target_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	event, err := eh.events.Create(c.Request.Context(), userID, services.EventCreateInput{
		Description: req.Description,
		Type:        req.Type,
		ActorID:     req.ActorID,
		TargetID:    req.TargetID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondCreated(c, event)
}
