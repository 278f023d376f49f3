package user

import (
	"strings"
	"time"

	"account-service/internal/auth"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusActive, StatusInactive:
		return st, nil
	default:
		return "", auth.Invalid("parse status", "status must be ACTIVE or INACTIVE")
	}
}

// User is a persisted account member. PasswordHash never leaves the service.
type User struct {
	ID           uuid.UUID  `json:"id"`
	AccountID    uuid.UUID  `json:"account_id"`
	BranchID     *uuid.UUID `json:"branch_id"`
	Name         *string    `json:"name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	Role         auth.Role  `json:"role"`
	Status       Status     `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	DeletedAt    *time.Time `json:"-"`
}

type CreateRequest struct {
	AccountID uuid.UUID  `json:"account_id"`
	BranchID  *uuid.UUID `json:"branch_id"`
	Name      *string    `json:"name"`
	Email     string     `json:"email"`
	Password  string     `json:"password"`
	Role      string     `json:"role"`
}

// UpdateRequest changes only the fields that are set.
type UpdateRequest struct {
	BranchID *uuid.UUID `json:"branch_id"`
	Name     *string    `json:"name"`
	Email    *string    `json:"email"`
	Password *string    `json:"password"`
	Role     *string    `json:"role"`
	Status   *string    `json:"status"`
}
