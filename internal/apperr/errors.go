// Package apperr defines the closed error taxonomy shared by the service
// and the HTTP boundary. Errors are classified once, at the point where a
// failure is first understood (e.g. a constraint violation inside the
// store), and pass through every layer above unmodified.
package apperr

import "fmt"

// Code identifies an error class. The set is closed: the boundary maps
// each code to exactly one HTTP status and anything unclassified becomes
// an InternalError.
type Code string

const (
	CodeBadRequest   Code = "bad-request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not-found"
	CodeConflict     Code = "conflict"
	CodeInternal     Code = "internal-error"
)

// Issue describes a single payload-shape violation.
type Issue struct {
	Field  string `json:"field,omitempty"`
	Detail string `json:"detail"`
}

// BadRequestError carries structured issues describing why a request
// payload was rejected.
type BadRequestError struct {
	Issues []Issue
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("app-error: %s (%d issues)", CodeBadRequest, len(e.Issues))
}

// BadRequest builds a BadRequestError from issues.
func BadRequest(issues ...Issue) *BadRequestError {
	return &BadRequestError{Issues: issues}
}

// UnauthorizedError carries a short machine-readable reason code such as
// "authorization-missing" or "subject-missing".
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("app-error: %s (%s)", CodeUnauthorized, e.Reason)
}

// Unauthorized builds an UnauthorizedError with the given reason code.
func Unauthorized(reason string) *UnauthorizedError {
	return &UnauthorizedError{Reason: reason}
}

// NotFoundError is reserved for resource lookups. No current operation
// produces it, but the boundary mapping is wired so a future lookup can
// return it without touching the error middleware.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("app-error: %s (%s)", CodeNotFound, e.Resource)
}

// NotFound builds a NotFoundError for the named resource.
func NotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// ConflictError reports a unique-constraint violation and names the
// conflicting field.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("app-error: %s (field=%s)", CodeConflict, e.Field)
}

// Conflict builds a ConflictError for the given field.
func Conflict(field string) *ConflictError {
	return &ConflictError{Field: field}
}

// InternalError wraps an unclassified failure. The cause is for
// server-side logging only and must never reach a caller.
type InternalError struct {
	Cause error
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("app-error: %s", CodeInternal)
}

func (e *InternalError) Unwrap() error { return e.Cause }

// Internal wraps err into an InternalError.
func Internal(err error) *InternalError {
	return &InternalError{Cause: err}
}
