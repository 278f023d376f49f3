package handler

import (
	"time"

	"account-service/internal/auth"
	"account-service/internal/auth/credentials"
	"account-service/internal/response"
	"account-service/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type registerRequest struct {
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Role      string     `json:"role"`
	AccountID uuid.UUID  `json:"account_id"`
	BranchID  *uuid.UUID `json:"branch_id"`
	Name      *string    `json:"name"`
}

type registerResponse struct {
	UserID    uuid.UUID  `json:"user_id"`
	Role      auth.Role  `json:"role"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, auth.Invalid("bind register", "invalid request body"))
		return
	}

	role, err := auth.ParseRole(req.Role)
	if err != nil {
		response.Error(c, err)
		return
	}

	reg, err := h.credentials.Register(c.Request.Context(), credentials.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Role:      role,
		AccountID: req.AccountID,
		BranchID:  req.BranchID,
		Name:      req.Name,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	out := registerResponse{UserID: reg.UserID, Role: reg.Role}
	if reg.Session != nil {
		session.SetCookie(c.Writer, reg.Session.ID, reg.Session.ExpiresAt, h.cookie)
		out.ExpiresAt = &reg.Session.ExpiresAt
	}

	response.Created(c, out)
}
