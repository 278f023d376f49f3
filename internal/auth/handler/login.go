package handler

import (
	"time"

	"account-service/internal/auth"
	"account-service/internal/response"
	"account-service/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	UserID    uuid.UUID `json:"user_id"`
	Role      auth.Role `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, auth.Invalid("bind login", "invalid request body"))
		return
	}

	res, err := h.credentials.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		response.Error(c, err)
		return
	}

	// The token travels in the cookie only
	session.SetCookie(c.Writer, res.Session.ID, res.Session.ExpiresAt, h.cookie)

	response.Success(c, loginResponse{
		UserID:    res.UserID,
		Role:      res.Role,
		ExpiresAt: res.Session.ExpiresAt,
	})
}
