package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/velmark/cybercity-backend/internal/data/repos"
	"github.com/velmark/cybercity-backend/internal/http/response"
	"github.com/velmark/cybercity-backend/internal/platform/dbctx"
	"github.com/velmark/cybercity-backend/internal/services"
)

type UserHandler struct {
	users repos.UserRepo
}

func NewUserHandler(users repos.UserRepo) *UserHandler {
	return &UserHandler{users: users}
}

// GET /api/users/me
func (uh *UserHandler) GetMe(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	user, err := uh.users.GetByID(dbctx.New(c.Request.Context()), userID)
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	if user == nil {
		respondServiceError(c, services.ErrNotFound)
		return
	}
	response.RespondOK(c, user)
}
