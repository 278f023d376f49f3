package middleware

import (
	"net/http"

	"account-service/internal/auth"

	"github.com/gin-gonic/gin"
)

// IdentityKey is the gin context key holding the auth.Identity.
const IdentityKey = "identity"

// GinRequireAuth adapts the net/http AuthMiddleware to Gin. With no roles
// any authenticated identity passes.
func GinRequireAuth(a *AuthMiddleware, roles ...auth.Role) gin.HandlerFunc {
	gate := a.RequireRoles(auth.NewRoleSet(roles...))

	return func(c *gin.Context) {
		// Bridge handler to allow net/http middleware execution
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			if identity, ok := auth.IdentityFromContext(r.Context()); ok {
				c.Set(IdentityKey, identity)
			}
			c.Next()
		})

		gate(next).ServeHTTP(c.Writer, c.Request)

		// If the gate already answered, stop the Gin chain
		if c.Writer.Written() {
			c.Abort()
		}
	}
}

// CurrentIdentity returns the identity set by GinRequireAuth.
func CurrentIdentity(c *gin.Context) (auth.Identity, bool) {
	if v, ok := c.Get(IdentityKey); ok {
		if identity, ok := v.(auth.Identity); ok {
			return identity, true
		}
	}
	return auth.IdentityFromContext(c.Request.Context())
}
