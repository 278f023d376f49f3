package user

import (
	"context"
	"time"

	"account-service/internal/auth"
	"account-service/internal/auth/credentials"
	"account-service/internal/logger"

	"github.com/google/uuid"
)

// Repository is implemented by PostgresRepository.
type Repository interface {
	credentials.UserRepository
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context) ([]*User, error)
	ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*User, error)
	ListByBranch(ctx context.Context, branchID uuid.UUID) ([]*User, error)
	ListByRole(ctx context.Context, role auth.Role) ([]*User, error)
	Update(ctx context.Context, u *User) error
	SetStatus(ctx context.Context, id uuid.UUID, status Status) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// SessionRevoker ends every session a user holds.
type SessionRevoker interface {
	RevokeAllForUser(ctx context.Context, userID uuid.UUID) (int, error)
}

type Service struct {
	repo     Repository
	hasher   credentials.PasswordHasher
	sessions SessionRevoker
}

func NewService(repo Repository, hasher credentials.PasswordHasher, sessions SessionRevoker) *Service {
	return &Service{repo: repo, hasher: hasher, sessions: sessions}
}

func (s *Service) List(ctx context.Context) ([]*User, error) {
	return s.repo.List(ctx)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*User, error) {
	return s.repo.ListByAccount(ctx, accountID)
}

func (s *Service) ListByBranch(ctx context.Context, branchID uuid.UUID) ([]*User, error) {
	return s.repo.ListByBranch(ctx, branchID)
}

func (s *Service) ListByRole(ctx context.Context, role string) ([]*User, error) {
	r, err := auth.ParseRole(role)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByRole(ctx, r)
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		return nil, err
	}

	in := credentials.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		Role:      role,
		AccountID: req.AccountID,
		BranchID:  req.BranchID,
		Name:      req.Name,
	}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.repo.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, auth.E(auth.ErrDuplicateEmail, "create user", nil)
	}

	hash, err := s.hasher.Hash(ctx, in.Password)
	if err != nil {
		return nil, err
	}

	id, err := s.repo.InsertUser(ctx, credentials.NewUser{
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

	logger.Info("user created", map[string]any{"user_id": id.String(), "role": role.String()})

	return s.repo.GetByID(ctx, id)
}

// Update applies req to the user. Changing the password or role, or
// deactivating through status, ends the user's existing sessions.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*User, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	var revoke bool

	if req.BranchID != nil {
		u.BranchID = req.BranchID
	}
	if req.Name != nil {
		if n := len([]rune(*req.Name)); n < 1 || n > 100 {
			return nil, auth.Invalid("update user", "name must be between 1 and 100 characters")
		}
		u.Name = req.Name
	}
	if req.Email != nil {
		email := credentials.NormalizeEmail(*req.Email)
		if err := credentials.ValidateEmail(email); err != nil {
			return nil, err
		}
		if email != u.Email {
			exists, err := s.repo.EmailExists(ctx, email)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, auth.E(auth.ErrDuplicateEmail, "update user", nil)
			}
			u.Email = email
		}
	}
	if req.Password != nil {
		if err := credentials.ValidatePassword(*req.Password); err != nil {
			return nil, err
		}
		hash, err := s.hasher.Hash(ctx, *req.Password)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
		revoke = true
	}
	if req.Role != nil {
		role, err := auth.ParseRole(*req.Role)
		if err != nil {
			return nil, err
		}
		if role != u.Role {
			u.Role = role
			revoke = true
		}
	}
	status := u.Status
	if req.Status != nil {
		status, err = ParseStatus(*req.Status)
		if err != nil {
			return nil, err
		}
		if status == StatusInactive && u.Role == auth.RoleRoot {
			return nil, auth.E(auth.ErrForbidden, "deactivate root user", nil)
		}
		if status != u.Status && status == StatusInactive {
			revoke = true
		}
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	// status goes through SetStatus so deleted_at stays in step with it
	if status != u.Status {
		if err := s.repo.SetStatus(ctx, u.ID, status); err != nil {
			return nil, err
		}
		u.Status = status
		u.DeletedAt = nil
		if status == StatusInactive {
			now := time.Now()
			u.DeletedAt = &now
		}
	}

	if revoke {
		if err := s.revokeSessions(ctx, u.ID); err != nil {
			return nil, err
		}
	}

	return u, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	logger.Info("user deleted", map[string]any{"user_id": id.String()})
	return s.revokeSessions(ctx, id)
}

// Deactivate soft-deletes a user and ends their sessions. Root users
// cannot be deactivated.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if u.Role == auth.RoleRoot {
		return auth.E(auth.ErrForbidden, "deactivate root user", nil)
	}

	if err := s.repo.SetStatus(ctx, id, StatusInactive); err != nil {
		return err
	}
	logger.Info("user deactivated", map[string]any{"user_id": id.String()})
	return s.revokeSessions(ctx, id)
}

func (s *Service) Activate(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.SetStatus(ctx, id, StatusActive); err != nil {
		return err
	}
	logger.Info("user activated", map[string]any{"user_id": id.String()})
	return nil
}

func (s *Service) revokeSessions(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.sessions.RevokeAllForUser(ctx, userID); err != nil {
		logger.LogError(ctx, "session revocation failed", err, map[string]any{"user_id": userID.String()})
		return err
	}
	return nil
}
