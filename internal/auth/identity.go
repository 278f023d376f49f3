package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Identity is the authenticated principal attached to a request. It is
// rebuilt from the session store on every request and never outlives it.
type Identity struct {
	UserID uuid.UUID
	Role   Role
	// ExpiresAt is when the session ends. Renewed is set when this
	// resolution pushed ExpiresAt forward and the client cookie needs it too.
	ExpiresAt time.Time
	Renewed   bool
}

// unexported, collision-proof context key
type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext extracts the authenticated identity from ctx.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
