package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/velmark/cybercity-backend/internal/http/response"
	"github.com/velmark/cybercity-backend/internal/simulation"
)

type SimulationHandler struct {
	engine *simulation.Engine
}

func NewSimulationHandler(engine *simulation.Engine) *SimulationHandler {
	return &SimulationHandler{engine: engine}
}

// POST /api/simulation/control
func (sh *SimulationHandler) Control(c *gin.Context) {
	var req struct {
		Action string   `json:"action" binding:"required"`
		Speed  *float64 `json:"speed"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	switch req.Action {
	case "pause", "resume", "set_speed":
	default:
		response.RespondError(c, http.StatusBadRequest, "invalid_action", errors.New("unknown action: "+req.Action))
		return
	}
	status := sh.engine.Control(req.Action, req.Speed)
	response.RespondOK(c, status)
}
