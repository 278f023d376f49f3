package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"account-service/internal/auth"
	"account-service/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeResolver struct {
	identity *auth.Identity
	err      error
	calls    int
}

func (f *fakeResolver) Resolve(ctx context.Context, sessionID string) (*auth.Identity, error) {
	f.calls++
	return f.identity, f.err
}

var cookieOpts = session.CookieOptions{Name: "sid"}

func withCookie(r *http.Request, value string) *http.Request {
	r.AddCookie(&http.Cookie{Name: "sid", Value: value})
	return r
}

func okHandler(t *testing.T, want *auth.Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := auth.IdentityFromContext(r.Context())
		require.True(t, ok)
		assert.Equal(t, *want, got)
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestRequireAuthNoCookie(t *testing.T) {
	resolver := &fakeResolver{}
	mw := NewAuthMiddleware(resolver, cookieOpts)

	rec := httptest.NewRecorder()
	mw.RequireAuth(okHandler(t, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, resolver.calls, "no lookup without a cookie")
}

func TestRequireAuthEmptyCookie(t *testing.T) {
	resolver := &fakeResolver{}
	mw := NewAuthMiddleware(resolver, cookieOpts)

	rec := httptest.NewRecorder()
	mw.RequireAuth(okHandler(t, nil)).ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), ""))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, resolver.calls)
}

func TestRequireAuthUnknownSession(t *testing.T) {
	mw := NewAuthMiddleware(&fakeResolver{}, cookieOpts)

	rec := httptest.NewRecorder()
	mw.RequireAuth(okHandler(t, nil)).ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), "garbage"))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), auth.CodeUnauthenticated)
}

func TestRequireAuthStoreFailure(t *testing.T) {
	mw := NewAuthMiddleware(&fakeResolver{err: auth.E(auth.ErrStore, "resolve", errors.New("down"))}, cookieOpts)

	rec := httptest.NewRecorder()
	mw.RequireAuth(okHandler(t, nil)).ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), "token"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequireRoles(t *testing.T) {
	identity := &auth.Identity{UserID: uuid.New(), Role: auth.RoleWaiter}
	mw := NewAuthMiddleware(&fakeResolver{identity: identity}, cookieOpts)

	rec := httptest.NewRecorder()
	mw.RequireRoles(auth.NewRoleSet(auth.RoleRoot))(okHandler(t, identity)).
		ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), "token"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	mw.RequireRoles(auth.NewRoleSet(auth.RoleRoot, auth.RoleWaiter))(okHandler(t, identity)).
		ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), "token"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRenewedSessionRefreshesCookie(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour)
	renewed := &auth.Identity{UserID: uuid.New(), Role: auth.RoleCook, ExpiresAt: expiresAt, Renewed: true}
	mw := NewAuthMiddleware(&fakeResolver{identity: renewed}, cookieOpts)

	rec := httptest.NewRecorder()
	mw.RequireAuth(okHandler(t, renewed)).ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), "token"))
	require.Equal(t, http.StatusNoContent, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, "sid", cookies[0].Name)
	assert.Equal(t, "token", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.InDelta(t, time.Hour.Seconds(), float64(cookies[0].MaxAge), 2)

	fixed := &auth.Identity{UserID: uuid.New(), Role: auth.RoleCook, ExpiresAt: expiresAt}
	mw = NewAuthMiddleware(&fakeResolver{identity: fixed}, cookieOpts)

	rec = httptest.NewRecorder()
	mw.RequireAuth(okHandler(t, fixed)).ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/", nil), "token"))
	assert.Empty(t, rec.Result().Cookies())
}

func TestGinRequireAuth(t *testing.T) {
	identity := &auth.Identity{UserID: uuid.New(), Role: auth.RoleManager}
	mw := NewAuthMiddleware(&fakeResolver{identity: identity}, cookieOpts)

	router := gin.New()
	router.GET("/any", GinRequireAuth(mw), func(c *gin.Context) {
		got, ok := CurrentIdentity(c)
		require.True(t, ok)
		c.String(http.StatusOK, got.UserID.String())
	})
	router.GET("/root", GinRequireAuth(mw, auth.RoleRoot), func(c *gin.Context) {
		t.Fatal("handler must not run")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/any", nil), "token"))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, identity.UserID.String(), rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, withCookie(httptest.NewRequest(http.MethodGet, "/root", nil), "token"))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/any", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
