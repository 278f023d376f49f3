package middleware

import (
	"context"
	"net/http"

	"account-service/internal/auth"
	"account-service/internal/response"
	"account-service/internal/session"
)

// Resolver turns a session id into an identity. (nil, nil) means no session.
type Resolver interface {
	Resolve(ctx context.Context, sessionID string) (*auth.Identity, error)
}

type AuthMiddleware struct {
	Sessions Resolver
	Cookie   session.CookieOptions
}

func NewAuthMiddleware(sessions Resolver, cookie session.CookieOptions) *AuthMiddleware {
	return &AuthMiddleware{Sessions: sessions, Cookie: cookie}
}

// RequireAuth admits any authenticated identity.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return a.RequireRoles(nil)(next)
}

// RequireRoles admits identities whose role is in allowed. An empty set
// admits every authenticated identity.
func (a *AuthMiddleware) RequireRoles(allowed auth.RoleSet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Read session cookie
			sessionID := session.ReadCookie(r, a.Cookie)
			if sessionID == "" {
				response.WriteError(w, r, auth.E(auth.ErrUnauthenticated, "read session cookie", nil))
				return
			}

			// 2. Resolve session; a store failure is not an anonymous request
			identity, err := a.Sessions.Resolve(r.Context(), sessionID)
			if err != nil {
				response.WriteError(w, r, err)
				return
			}
			if identity == nil {
				response.WriteError(w, r, auth.E(auth.ErrUnauthenticated, "resolve session", nil))
				return
			}

			// 3. Role gate
			if !allowed.Allows(identity.Role) {
				response.WriteError(w, r, auth.E(auth.ErrForbidden, "check role", nil))
				return
			}

			// 4. Sliding sessions carry the new expiry to the cookie
			if identity.Renewed {
				session.SetCookie(w, sessionID, identity.ExpiresAt, a.Cookie)
			}

			// 5. Attach identity and continue
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), *identity)))
		})
	}
}
