package service

import (
	"errors"
	"net/http"
	"strings"
)

// The orchestrator exposes a fixed error taxonomy. Handlers map these to
// status codes and user-safe messages; no driver or storage detail ever
// crosses this boundary. Lookup misses and password mismatches share
// ErrInvalidCredentials so responses cannot be used for account enumeration.
var (
	ErrInvalidRequest          = errors.New("invalid request")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrAccountDeactivated      = errors.New("account deactivated")
	ErrRefreshRequired         = errors.New("refresh token required")
	ErrInvalidRefreshToken     = errors.New("invalid refresh token")
	ErrUserNotFound            = errors.New("user not found")
	ErrInsufficientPermissions = errors.New("insufficient permissions")
	ErrEmailAlreadyRegistered  = errors.New("email already registered")
)

// WeakPasswordError carries the full list of violated policy rules so the
// client can display them all at once.
type WeakPasswordError struct {
	Violations []string
}

func (e *WeakPasswordError) Error() string {
	return "weak password: " + strings.Join(e.Violations, "; ")
}

// HTTPStatus maps an orchestrator error to its response status. Unknown
// errors are internal failures.
func HTTPStatus(err error) int {
	var weak *WeakPasswordError
	switch {
	case errors.Is(err, ErrInvalidRequest), errors.As(err, &weak):
		return http.StatusBadRequest
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrRefreshRequired),
		errors.Is(err, ErrInvalidRefreshToken),
		errors.Is(err, ErrUserNotFound):
		return http.StatusUnauthorized
	case errors.Is(err, ErrAccountDeactivated),
		errors.Is(err, ErrInsufficientPermissions):
		return http.StatusForbidden
	case errors.Is(err, ErrEmailAlreadyRegistered):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage returns the client-facing text for an orchestrator error.
func UserMessage(err error) string {
	var weak *WeakPasswordError
	if errors.As(err, &weak) {
		return weak.Error()
	}
	if HTTPStatus(err) == http.StatusInternalServerError {
		return "internal server error"
	}
	return err.Error()
}
