package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"account-service/internal/auth"
	"account-service/internal/logger"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultTTL          = 24 * time.Hour
	DefaultStoreTimeout = 2 * time.Second
)

// Resolution outcomes reported to Metrics.
const (
	ResultActive  = "active"
	ResultAbsent  = "absent"
	ResultExpired = "expired"
	ResultInvalid = "invalid"
	ResultCorrupt = "corrupt"
	ResultError   = "error"
)

// Metrics receives session lifecycle observations.
type Metrics interface {
	ObserveResolve(result string)
	ObserveBackgroundFailure(op string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveResolve(string)           {}
func (nopMetrics) ObserveBackgroundFailure(string) {}

type Options struct {
	TTL time.Duration
	// Sliding extends a session's lifetime each time it resolves.
	Sliding bool
	// StoreTimeout bounds every individual store call.
	StoreTimeout time.Duration
	Metrics      Metrics
	Now          func() time.Time
}

// Issued is what the caller needs to hand the session to a client.
type Issued struct {
	ID        string
	ExpiresAt time.Time
}

// Manager owns the session lifecycle on top of a Store. It keeps no
// session state in process; every resolution reads the store.
type Manager struct {
	store   Store
	ttl     time.Duration
	sliding bool
	timeout time.Duration
	metrics Metrics
	now     func() time.Time
	tracer  trace.Tracer

	wg sync.WaitGroup
}

func NewManager(store Store, opts Options) *Manager {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Manager{
		store:   store,
		ttl:     opts.TTL,
		sliding: opts.Sliding,
		timeout: opts.StoreTimeout,
		metrics: opts.Metrics,
		now:     opts.Now,
		tracer:  otel.Tracer("account-service/session"),
	}
}

// Create starts a new session for userID. The id is freshly generated and
// never reused.
func (m *Manager) Create(ctx context.Context, userID uuid.UUID, role auth.Role) (_ *Issued, err error) {
	ctx, span := m.tracer.Start(ctx, "session.Create", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
		attribute.String("user.role", role.String()),
	))
	defer func() { endSpan(span, err) }()

	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	now := m.now()
	rec := &Record{
		SessionID: id,
		UserID:    userID,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.call(ctx, "session create", func(ctx context.Context) error {
		return m.store.Put(ctx, rec, m.ttl)
	}); err != nil {
		return nil, err
	}

	return &Issued{ID: id, ExpiresAt: rec.ExpiresAt}, nil
}

// Resolve maps a session id to its identity. A missing, malformed, corrupt
// or expired session resolves to (nil, nil); only store failures are errors.
func (m *Manager) Resolve(ctx context.Context, sessionID string) (_ *auth.Identity, err error) {
	if !ValidID(sessionID) {
		m.metrics.ObserveResolve(ResultInvalid)
		return nil, nil
	}

	ctx, span := m.tracer.Start(ctx, "session.Resolve")
	defer func() { endSpan(span, err) }()

	var rec *Record
	err = m.call(ctx, "session resolve", func(ctx context.Context) error {
		var err error
		rec, err = m.store.Get(ctx, sessionID)
		return err
	})
	switch {
	case errors.Is(err, ErrCorruptRecord):
		m.metrics.ObserveResolve(ResultCorrupt)
		logger.Warn("dropping corrupt session record", nil)
		m.cleanup(ctx, sessionID)
		return nil, nil
	case err != nil:
		m.metrics.ObserveResolve(ResultError)
		return nil, err
	case rec == nil:
		m.metrics.ObserveResolve(ResultAbsent)
		return nil, nil
	}

	now := m.now()
	if rec.Expired(now) {
		// lazy expiry only narrows validity; the store TTL removes it anyway
		m.metrics.ObserveResolve(ResultExpired)
		m.cleanup(ctx, sessionID)
		return nil, nil
	}

	m.metrics.ObserveResolve(ResultActive)
	span.SetAttributes(attribute.String("user.id", rec.UserID.String()))

	identity := &auth.Identity{UserID: rec.UserID, Role: rec.Role, ExpiresAt: rec.ExpiresAt}

	if m.sliding {
		renewed := *rec
		renewed.ExpiresAt = now.Add(m.ttl)
		m.background(ctx, "session renew", func(ctx context.Context) error {
			_, err := m.store.Touch(ctx, &renewed, m.ttl)
			return err
		})
		identity.ExpiresAt = renewed.ExpiresAt
		identity.Renewed = true
	}

	return identity, nil
}

// Revoke ends a session. Revoking an unknown or already revoked session
// succeeds.
func (m *Manager) Revoke(ctx context.Context, sessionID string) (err error) {
	if !ValidID(sessionID) {
		return nil
	}

	ctx, span := m.tracer.Start(ctx, "session.Revoke")
	defer func() { endSpan(span, err) }()

	return m.call(ctx, "session revoke", func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// RevokeAllForUser ends every session belonging to userID.
func (m *Manager) RevokeAllForUser(ctx context.Context, userID uuid.UUID) (n int, err error) {
	ctx, span := m.tracer.Start(ctx, "session.RevokeAllForUser", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer func() { endSpan(span, err) }()

	err = m.call(ctx, "session revoke all", func(ctx context.Context) error {
		var err error
		n, err = m.store.DeleteAllForUser(ctx, userID)
		return err
	})
	if err != nil {
		return 0, err
	}

	logger.Info("revoked user sessions", map[string]any{
		"user_id": userID.String(),
		"count":   n,
	})
	return n, nil
}

// Wait blocks until background renewals and cleanups have finished.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// call runs fn under the store timeout. Anything fn returns that is not
// already classified is a store failure.
func (m *Manager) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	err := fn(ctx)
	if err == nil || errors.Is(err, ErrCorruptRecord) || errors.Is(err, auth.ErrStore) {
		return err
	}
	return auth.E(auth.ErrStore, op, err)
}

func (m *Manager) cleanup(ctx context.Context, sessionID string) {
	m.background(ctx, "session cleanup", func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// background runs fn detached from the caller's cancellation but bounded by
// the store timeout. Failures are logged and counted, never returned.
func (m *Manager) background(parent context.Context, op string, fn func(ctx context.Context) error) {
	ctx := context.WithoutCancel(parent)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()

		if err := m.call(ctx, op, fn); err != nil {
			m.metrics.ObserveBackgroundFailure(op)
			logger.LogError(ctx, "background session write failed", err, map[string]any{
				"operation": op,
			})
		}
	}()
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, auth.Code(err))
	}
	span.End()
}
