package scopekit

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for ScopeKit operations.
var (
	// ErrNotAuthenticated is returned when no caller identity is available.
	ErrNotAuthenticated = errors.New("scopekit: not authenticated")

	// ErrPermissionDenied is used at the HTTP boundary when CheckPermission
	// resolves to no grant. The resolver itself never returns this error;
	// denial is a nil user.
	ErrPermissionDenied = errors.New("scopekit: permission denied")

	// ErrValidation is returned when a role or permission payload is
	// structurally invalid.
	ErrValidation = errors.New("scopekit: validation failed")

	// ErrInvalidPermission is returned when a permission name is malformed.
	ErrInvalidPermission = errors.New("scopekit: invalid permission")

	// ErrInvalidScope is returned when a scope cannot be built from the
	// request.
	ErrInvalidScope = errors.New("scopekit: invalid scope")

	// ErrRoleExists is returned when creating a role whose name is taken.
	ErrRoleExists = errors.New("scopekit: role already exists")

	// ErrRoleNotFound is returned when a role does not exist.
	ErrRoleNotFound = errors.New("scopekit: role not found")

	// ErrUserNotFound is returned when a user does not exist.
	ErrUserNotFound = errors.New("scopekit: user not found")

	// ErrRoleAlreadyAssigned is returned when adding a role the user holds.
	ErrRoleAlreadyAssigned = errors.New("scopekit: role already assigned")

	// ErrRoleNotAssigned is returned when removing a role the user lacks.
	ErrRoleNotAssigned = errors.New("scopekit: role not assigned")

	// ErrStore is returned when a store operation fails.
	ErrStore = errors.New("scopekit: store error")
)

// Error wraps a sentinel error with additional context.
type Error struct {
	Err      error  // Underlying sentinel error
	Message  string // Additional context
	Role     string // Role involved (if applicable)
	Username string // User involved (if applicable)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
	}
	return e.Err.Error()
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is checks if the error matches a target error.
func (e *Error) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewError creates a new Error with context.
func NewError(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
	}
}

// WithRole adds role information to the error.
func (e *Error) WithRole(role string) *Error {
	e.Role = role
	return e
}

// WithUser adds user information to the error.
func (e *Error) WithUser(username string) *Error {
	e.Username = username
	return e
}

// IsNotAuthenticated checks if an error means the caller has no identity.
func IsNotAuthenticated(err error) bool {
	return errors.Is(err, ErrNotAuthenticated)
}

// IsPermissionDenied checks if an error is a permission denial.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}

// IsValidation checks if an error is a payload validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidPermission) ||
		errors.Is(err, ErrInvalidScope)
}

// HTTPStatus maps ScopeKit errors to HTTP status codes: 401 for missing
// identity, 403 for denial, 400 for validation and lifecycle conflicts,
// 500 for store failures and anything unknown.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case IsNotAuthenticated(err):
		return http.StatusUnauthorized
	case IsPermissionDenied(err):
		return http.StatusForbidden
	case IsValidation(err),
		errors.Is(err, ErrRoleExists),
		errors.Is(err, ErrRoleNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrRoleAlreadyAssigned),
		errors.Is(err, ErrRoleNotAssigned):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
