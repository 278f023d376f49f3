// Package handler exposes the credential auth routes.
package handler

import (
	"account-service/internal/auth/credentials"
	"account-service/internal/logger"
	"account-service/internal/middleware"
	"account-service/internal/session"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	credentials *credentials.Service
	cookie      session.CookieOptions
}

func NewHandler(svc *credentials.Service, cookie session.CookieOptions) *Handler {
	return &Handler{
		credentials: svc,
		cookie:      cookie,
	}
}

// RegisterRoutes mounts the public auth routes and /auth/me behind gate.
func (h *Handler) RegisterRoutes(r gin.IRouter, gate *middleware.AuthMiddleware) {
	g := r.Group("/auth")
	g.POST("/register", h.Register)
	g.POST("/login", h.Login)
	g.POST("/logout", h.Logout)
	g.DELETE("/logout", h.Logout)
	g.GET("/me", middleware.GinRequireAuth(gate), h.Me)

	logger.Debug("auth routes registered", map[string]any{"prefix": "/auth"})
}
