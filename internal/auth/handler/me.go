package handler

import (
	"account-service/internal/auth"
	"account-service/internal/middleware"
	"account-service/internal/response"

	"github.com/gin-gonic/gin"
)

type meResponse struct {
	UserID string    `json:"user_id"`
	Role   auth.Role `json:"role"`
}

func (h *Handler) Me(c *gin.Context) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		response.Error(c, auth.E(auth.ErrUnauthenticated, "current identity", nil))
		return
	}
	response.Success(c, meResponse{UserID: identity.UserID.String(), Role: identity.Role})
}
