package session

import (
	"context"
	"time"

	"account-service/internal/auth"

	"github.com/google/uuid"
)

// Record is the server-side state of one session.
// It stores identity pointers only, never credentials.
type Record struct {
	SessionID string    `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the record is logically absent at now.
func (r *Record) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Store defines how session records are kept. Implementations return
// (nil, nil) from Get for a missing record and must never report a
// connectivity failure as "missing".
type Store interface {
	// Put writes rec with a time-to-live in a single atomic step.
	Put(ctx context.Context, rec *Record, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*Record, error)
	// Delete is idempotent.
	Delete(ctx context.Context, sessionID string) error
	// Touch overwrites an existing record and resets its TTL. It reports
	// false when the record no longer exists and writes nothing.
	Touch(ctx context.Context, rec *Record, ttl time.Duration) (bool, error)
	// DeleteAllForUser removes every session of userID and returns how many.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) (int, error)
}
