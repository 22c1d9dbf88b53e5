package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/velmark/cybercity-backend/internal/realtime"
)

type RealtimeHandler struct {
	hub *realtime.Hub
}

func NewRealtimeHandler(hub *realtime.Hub) *RealtimeHandler {
	return &RealtimeHandler{hub: hub}
}

// GET /ws/events
func (rh *RealtimeHandler) Events(c *gin.Context) {
	rh.hub.ServeWS(c.Writer, c.Request)
}
