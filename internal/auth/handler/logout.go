package handler

import (
	"net/http"

	"account-service/internal/response"
	"account-service/internal/session"

	"github.com/gin-gonic/gin"
)

// Logout is idempotent. The cookie is cleared even when the store is down,
// but the failure is still reported so the client knows the session may live on.
func (h *Handler) Logout(c *gin.Context) {
	// 1. Read session cookie (same pattern as the auth gate)
	sessionID := session.ReadCookie(c.Request, h.cookie)

	// 2. Revoke in the store
	err := h.credentials.Logout(c.Request.Context(), sessionID)

	// 3. Clear cookie regardless
	session.ClearCookie(c.Writer, h.cookie)

	if err != nil {
		response.Error(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
