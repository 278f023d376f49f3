package credentials

import (
	"strings"
	"unicode/utf8"

	"account-service/internal/auth"

	"github.com/google/uuid"
)

const (
	MinPasswordLength = 8
	MaxPasswordLength = 100
)

// Credential is the login view of a user record.
type Credential struct {
	UserID       uuid.UUID
	Email        string
	PasswordHash string
	Role         auth.Role
}

// NewUser is what the repository needs to persist a registration.
type NewUser struct {
	AccountID    uuid.UUID
	BranchID     *uuid.UUID
	Name         *string
	Email        string
	PasswordHash string
	Role         auth.Role
}

// NormalizeEmail lower-cases and trims an address. Stored and looked-up
// emails always go through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail is a shape check only; delivery is not verified.
func ValidateEmail(email string) error {
	local, domain, ok := strings.Cut(email, "@")
	if !ok || local == "" || domain == "" || strings.ContainsAny(email, " \t\r\n") || strings.Contains(domain, "@") {
		return auth.Invalid("validate email", "email is invalid")
	}
	return nil
}

// ValidatePassword enforces the length policy in characters.
func ValidatePassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < MinPasswordLength || n > MaxPasswordLength {
		return auth.Invalid("validate password", "password must be between 8 and 100 characters")
	}
	return nil
}
