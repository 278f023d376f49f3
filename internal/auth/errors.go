package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/samber/oops"
)

// Error kinds. Callers classify with errors.Is; the oops layer built by E
// carries the code and structured context for logging.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrForbidden          = errors.New("forbidden")
	ErrStore              = errors.New("session store unavailable")
	ErrHashing            = errors.New("password hashing failed")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotFound           = errors.New("not found")
	ErrRepository         = errors.New("user repository failure")
)

const (
	CodeInvalidCredentials = "AUTH_INVALID_CREDENTIALS"
	CodeDuplicateEmail     = "AUTH_DUPLICATE_EMAIL"
	CodeUnauthenticated    = "AUTH_UNAUTHENTICATED"
	CodeForbidden          = "AUTH_FORBIDDEN"
	CodeStore              = "SESSION_STORE_ERROR"
	CodeHashing            = "AUTH_HASHING_ERROR"
	CodeServiceUnavailable = "SERVICE_UNAVAILABLE"
	CodeInvalidInput       = "INVALID_INPUT"
	CodeNotFound           = "NOT_FOUND"
	CodeRepository         = "USER_REPOSITORY_ERROR"
	CodeInternal           = "INTERNAL_ERROR"
)

var kindCodes = map[error]string{
	ErrInvalidCredentials: CodeInvalidCredentials,
	ErrDuplicateEmail:     CodeDuplicateEmail,
	ErrUnauthenticated:    CodeUnauthenticated,
	ErrForbidden:          CodeForbidden,
	ErrStore:              CodeStore,
	ErrHashing:            CodeHashing,
	ErrServiceUnavailable: CodeServiceUnavailable,
	ErrInvalidInput:       CodeInvalidInput,
	ErrNotFound:           CodeNotFound,
	ErrRepository:         CodeRepository,
}

// E builds a coded error of the given kind for operation op. cause may be nil.
func E(kind error, op string, cause error) error {
	code, ok := kindCodes[kind]
	if !ok {
		code = CodeInternal
	}
	b := oops.Code(code).With("operation", op)
	if cause == nil {
		return b.Wrap(kind)
	}
	return b.Wrap(fmt.Errorf("%w: %w", kind, cause))
}

// Invalid builds an ErrInvalidInput whose reason is safe to show clients.
func Invalid(op, reason string) error {
	return oops.Code(CodeInvalidInput).
		With("operation", op).
		With("reason", reason).
		Wrap(fmt.Errorf("%w: %s", ErrInvalidInput, reason))
}

// Kind returns the first known kind found in err's chain, or nil. A
// deadline or cancellation anywhere in the chain is ErrServiceUnavailable,
// whatever layer wrapped it.
func Kind(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrServiceUnavailable
	}
	for _, kind := range []error{
		ErrInvalidCredentials,
		ErrDuplicateEmail,
		ErrUnauthenticated,
		ErrForbidden,
		ErrInvalidInput,
		ErrNotFound,
		ErrStore,
		ErrHashing,
		ErrServiceUnavailable,
		ErrRepository,
	} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Code returns the wire code for err.
func Code(err error) string {
	if code, ok := kindCodes[Kind(err)]; ok {
		return code
	}
	return CodeInternal
}

// HTTPStatus maps err onto the status code a client should see.
func HTTPStatus(err error) int {
	switch Kind(err) {
	case ErrInvalidCredentials, ErrUnauthenticated:
		return http.StatusUnauthorized
	case ErrDuplicateEmail:
		return http.StatusConflict
	case ErrForbidden:
		return http.StatusForbidden
	case ErrInvalidInput:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrStore, ErrServiceUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage is the message safe to return to clients. Backend details
// stay in the logs.
func PublicMessage(err error) string {
	switch kind := Kind(err); kind {
	case ErrInvalidInput:
		if oopsErr, ok := oops.AsOops(err); ok {
			if reason, ok := oopsErr.Context()["reason"].(string); ok && reason != "" {
				return reason
			}
		}
		return kind.Error()
	case ErrInvalidCredentials, ErrDuplicateEmail, ErrUnauthenticated, ErrForbidden, ErrNotFound:
		return kind.Error()
	case ErrStore, ErrServiceUnavailable:
		return ErrServiceUnavailable.Error()
	default:
		return "internal server error"
	}
}
