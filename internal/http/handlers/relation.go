package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/velmark/cybercity-backend/internal/http/response"
	"github.com/velmark/cybercity-backend/internal/services"
)

type RelationHandler struct {
	relations services.RelationService
}

func NewRelationHandler(relations services.RelationService) *RelationHandler {
	return &RelationHandler{relations: relations}
}

// GET /api/relations
func (rh *RelationHandler) List(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	relations, err := rh.relations.List(c.Request.Context(), userID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.RespondOK(c, relations)
}
