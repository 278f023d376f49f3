package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"account-service/internal/config"
	"account-service/internal/session"
)

type App struct {
	httpServer *http.Server
	sessions   *session.Manager
	infra      *Infra
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, err
	}

	svc, err := setupServices(cfg, infra)
	if err != nil {
		_ = infra.Close()
		return nil, err
	}

	router := setupHTTP(cfg, svc, map[string]pinger{
		"postgres": infra.DB,
		"redis":    infra.Redis,
	})

	server := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return &App{
		httpServer: server,
		sessions:   svc.sessions,
		infra:      infra,
	}, nil
}

// Run blocks serving HTTP. It returns nil after Shutdown.
func (a *App) Run() error {
	if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains requests, waits for background session work and then
// closes the stores.
func (a *App) Shutdown(ctx context.Context) error {
	if err := a.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	a.sessions.Wait()
	return a.infra.Close()
}
