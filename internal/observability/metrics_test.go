package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"account-service/internal/auth/credentials"
	"account-service/internal/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ session.Metrics     = (*Metrics)(nil)
	_ credentials.Metrics = (*Metrics)(nil)
)

func TestObservers(t *testing.T) {
	m := NewMetrics()

	m.ObserveResolve(session.ResultActive)
	m.ObserveResolve(session.ResultActive)
	m.ObserveResolve(session.ResultExpired)
	m.ObserveBackgroundFailure("session renew")
	m.ObserveLogin(credentials.LoginInvalid)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SessionResolves.WithLabelValues(session.ResultActive)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionResolves.WithLabelValues(session.ResultExpired)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.BackgroundFailures.WithLabelValues("session renew")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Logins.WithLabelValues(credentials.LoginInvalid)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Logins.WithLabelValues(credentials.LoginSuccess)))
}

func TestMiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewMetrics()

	r := gin.New()
	r.Use(m.Middleware())
	r.GET("/users/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/metrics", gin.WrapH(m.Handler()))

	for _, path := range []string{"/users/1", "/users/2", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/users/:id", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "unmatched", "404")))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "account_http_requests_total"))
}
