package app

import (
	"context"
	"net/http"
	"time"

	"account-service/internal/auth/credentials"
	"account-service/internal/auth/handler"
	"account-service/internal/config"
	"account-service/internal/middleware"
	"account-service/internal/observability"
	"account-service/internal/response"
	"account-service/internal/session"
	"account-service/internal/user"

	"github.com/gin-gonic/gin"
)

// pinger is a dependency /ready checks.
type pinger interface {
	Ping(ctx context.Context) error
}

type services struct {
	sessions *session.Manager
	auth     *credentials.Service
	users    *user.Service
	metrics  *observability.Metrics
}

func setupServices(cfg config.Config, infra *Infra) (*services, error) {
	var metrics *observability.Metrics
	sessionOpts := session.Options{
		TTL:          cfg.SessionMaxAge,
		Sliding:      cfg.SessionSliding,
		StoreTimeout: cfg.StoreTimeout,
	}
	authOpts := []credentials.Option{credentials.WithLoginOnRegister(cfg.LoginOnRegister)}
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
		sessionOpts.Metrics = metrics
		authOpts = append(authOpts, credentials.WithMetrics(metrics))
	}

	hasher, err := credentials.NewHasher(cfg.Hash)
	if err != nil {
		return nil, err
	}

	sessions := session.NewManager(session.NewRedisStore(infra.Redis.Client, cfg.SessionKeyPrefix), sessionOpts)
	repo := user.NewPostgresRepository(infra.DB.Pool)

	return &services{
		sessions: sessions,
		auth:     credentials.NewService(repo, hasher, sessions, authOpts...),
		users:    user.NewService(repo, hasher, sessions),
		metrics:  metrics,
	}, nil
}

func setupHTTP(cfg config.Config, svc *services, checks map[string]pinger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	if svc.metrics != nil {
		router.Use(svc.metrics.Middleware())
	}
	router.Use(middleware.Timeout(cfg.RequestTimeout))

	// ----------------------------
	// Public Routes
	// ----------------------------

	started := time.Now()
	router.GET("/health", healthHandler(started))
	router.GET("/ready", readyHandler(checks))
	if svc.metrics != nil {
		router.GET("/metrics", gin.WrapH(svc.metrics.Handler()))
	}

	gate := middleware.NewAuthMiddleware(svc.sessions, cfg.Cookie)

	handler.NewHandler(svc.auth, cfg.Cookie).RegisterRoutes(router, gate)

	// ----------------------------
	// Protected Routes
	// ----------------------------

	user.NewHandler(svc.users).RegisterRoutes(router, gate)

	return router
}

func healthHandler(started time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Success(c, gin.H{
			"status": "ok",
			"uptime": time.Since(started).Round(time.Second).String(),
		})
	}
}

// readyHandler answers 503 when any dependency fails to ping.
func readyHandler(checks map[string]pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := make(map[string]string, len(checks))
		ready := true
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				status[name] = "down"
				ready = false
				continue
			}
			status[name] = "up"
		}

		if !ready {
			c.JSON(http.StatusServiceUnavailable, response.Response{
				Success: false,
				Data:    status,
				Error: &response.ErrorData{
					Code:    "SERVICE_UNAVAILABLE",
					Message: "service unavailable",
				},
				Timestamp: time.Now().UTC(),
			})
			return
		}
		response.Success(c, status)
	}
}
