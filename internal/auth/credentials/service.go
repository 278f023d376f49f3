package credentials

import (
	"context"
	"errors"

	"account-service/internal/auth"
	"account-service/internal/logger"
	"account-service/internal/session"

	"github.com/google/uuid"
	"github.com/samber/oops"
)

// Login outcomes reported to Metrics.
const (
	LoginSuccess     = "success"
	LoginInvalid     = "invalid_credentials"
	LoginUnavailable = "unavailable"
	LoginError       = "error"
)

// UserRepository is the slice of the user store the auth flows need.
type UserRepository interface {
	// FindCredentialByEmail returns (nil, nil) when no active user has email.
	FindCredentialByEmail(ctx context.Context, email string) (*Credential, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	// InsertUser fails with auth.ErrDuplicateEmail if the email is taken.
	InsertUser(ctx context.Context, u NewUser) (uuid.UUID, error)
	UpdatePasswordHash(ctx context.Context, userID uuid.UUID, hash string) error
}

// PasswordHasher is implemented by Hasher.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, encoded string) (bool, error)
	NeedsUpgrade(encoded string) bool
	DummyHash() string
}

// Sessions is the part of session.Manager used here.
type Sessions interface {
	Create(ctx context.Context, userID uuid.UUID, role auth.Role) (*session.Issued, error)
	Revoke(ctx context.Context, sessionID string) error
}

type Metrics interface {
	ObserveLogin(result string)
}

type nopMetrics struct{}

func (nopMetrics) ObserveLogin(string) {}

type Service struct {
	users           UserRepository
	hasher          PasswordHasher
	sessions        Sessions
	metrics         Metrics
	loginOnRegister bool
}

type Option func(*Service)

// WithLoginOnRegister makes Register also open a session.
func WithLoginOnRegister(enabled bool) Option {
	return func(s *Service) { s.loginOnRegister = enabled }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func NewService(users UserRepository, hasher PasswordHasher, sessions Sessions, opts ...Option) *Service {
	s := &Service{
		users:    users,
		hasher:   hasher,
		sessions: sessions,
		metrics:  nopMetrics{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type RegisterInput struct {
	Email     string
	Password  string
	Role      auth.Role
	AccountID uuid.UUID
	BranchID  *uuid.UUID
	Name      *string
}

type Registration struct {
	UserID uuid.UUID
	Role   auth.Role
	// Session is set only when login-on-register is enabled.
	Session *session.Issued
}

// Validate checks the input shape and normalizes the email in place.
func (in *RegisterInput) Validate() error {
	in.Email = NormalizeEmail(in.Email)
	if err := ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := ValidatePassword(in.Password); err != nil {
		return err
	}
	if !in.Role.Valid() {
		return auth.Invalid("register", "role is invalid")
	}
	if in.AccountID == uuid.Nil {
		return auth.Invalid("register", "account_id is required")
	}
	if in.Name != nil {
		if n := len([]rune(*in.Name)); n < 1 || n > 100 {
			return auth.Invalid("register", "name must be between 1 and 100 characters")
		}
	}
	return nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Registration, error) {
	// 1. Validate and normalize
	if err := in.Validate(); err != nil {
		return nil, err
	}

	// 2. Reject taken emails before paying for a hash
	exists, err := s.users.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, oops.With("operation", "register").Wrap(err)
	}
	if exists {
		return nil, auth.E(auth.ErrDuplicateEmail, "register", nil)
	}

	// 3. Hash password
	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	// 4. Insert; the unique index settles concurrent registrations
	userID, err := s.users.InsertUser(ctx, NewUser{
		AccountID:    in.AccountID,
		BranchID:     in.BranchID,
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
	})
	if err != nil {
		return nil, err
	}

	logger.Info("user registered", map[string]any{
		"user_id": userID.String(),
		"role":    in.Role.String(),
	})

	reg := &Registration{UserID: userID, Role: in.Role}
	if s.loginOnRegister {
		issued, err := s.sessions.Create(ctx, userID, in.Role)
		if err != nil {
			return nil, err
		}
		reg.Session = issued
	}

	return reg, nil
}

type LoginResult struct {
	UserID  uuid.UUID
	Role    auth.Role
	Session *session.Issued
}

// Login verifies email and password and opens a session. Unknown emails and
// wrong passwords fail identically and cost one verification either way.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)

	// 1. Find credentials
	cred, err := s.users.FindCredentialByEmail(ctx, email)
	if err != nil {
		s.metrics.ObserveLogin(LoginError)
		return nil, oops.With("operation", "login").Wrap(err)
	}

	// 2. Verify, against the dummy hash when the email is unknown
	encoded := s.hasher.DummyHash()
	if cred != nil {
		encoded = cred.PasswordHash
	}

	ok, err := s.hasher.Verify(ctx, password, encoded)
	if err != nil {
		if errors.Is(err, auth.ErrServiceUnavailable) {
			s.metrics.ObserveLogin(LoginUnavailable)
			return nil, err
		}
		// a broken stored hash is our problem, not the caller's
		fields := map[string]any{}
		if cred != nil {
			fields["user_id"] = cred.UserID.String()
		}
		logger.LogError(ctx, "stored password hash rejected", err, fields)
		ok = false
	}
	if !ok || cred == nil {
		s.metrics.ObserveLogin(LoginInvalid)
		return nil, auth.E(auth.ErrInvalidCredentials, "login", nil)
	}

	// 3. Transparent rehash with current parameters
	if s.hasher.NeedsUpgrade(cred.PasswordHash) {
		s.upgradeHash(ctx, cred.UserID, password)
	}

	// 4. Create session
	issued, err := s.sessions.Create(ctx, cred.UserID, cred.Role)
	if err != nil {
		s.metrics.ObserveLogin(LoginUnavailable)
		return nil, err
	}

	s.metrics.ObserveLogin(LoginSuccess)
	logger.InfoContext(ctx, "login succeeded", map[string]any{
		"user_id": cred.UserID.String(),
		"role":    cred.Role.String(),
	})

	return &LoginResult{UserID: cred.UserID, Role: cred.Role, Session: issued}, nil
}

// Logout revokes sessionID. Unknown sessions are not an error.
func (s *Service) Logout(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, sessionID)
}

func (s *Service) upgradeHash(ctx context.Context, userID uuid.UUID, password string) {
	hash, err := s.hasher.Hash(ctx, password)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, userID, hash)
	}
	if err != nil {
		logger.LogError(ctx, "password rehash failed", err, map[string]any{
			"user_id": userID.String(),
		})
		return
	}
	logger.Info("password hash upgraded", map[string]any{"user_id": userID.String()})
}
