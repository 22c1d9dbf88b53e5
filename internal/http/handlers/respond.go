package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/velmark/cybercity-backend/internal/http/response"
	"github.com/velmark/cybercity-backend/internal/platform/ctxutil"
	"github.com/velmark/cybercity-backend/internal/services"
)

// respondServiceError maps the services sentinel errors onto HTTP statuses.
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrNotFound):
		response.RespondError(c, http.StatusNotFound, "not_found", err)
	case errors.Is(err, services.ErrAccessDenied):
		response.RespondError(c, http.StatusForbidden, "forbidden", err)
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", err)
	case errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrEmailTaken),
		errors.Is(err, services.ErrInvalidAgents),
		errors.Is(err, services.ErrEmptyChat):
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
	default:
		response.RespondError(c, http.StatusInternalServerError, "internal_error", err)
	}
}

// currentUserID pulls the authenticated user out of the request context.
// RequireAuth guarantees it is present on protected routes.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	rd := ctxutil.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", services.ErrInvalidToken)
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func parseIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", err)
		return uuid.Nil, false
	}
	return id, true
}
