package auth

import (
	"errors"
	"net/http"
)

// Sentinel errors surfaced by the core. Callers should test with errors.Is
// since store implementations may wrap them with backend detail.
var (
	// ErrDuplicateIdentifier is returned when a create would violate the
	// one-record-per-identifier guarantee (email or provider link already
	// taken).
	ErrDuplicateIdentifier = errors.New("identifier already registered")

	// ErrNotFound is returned by Directory lookups and by Save when the
	// record does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrAuthenticationFailed is the single generic login failure. It covers
	// both unknown identifiers and bad passwords so callers cannot enumerate
	// registered accounts.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrSessionInvalid is returned by the Codec for a stale or forged
	// session token. Callers should treat the request as anonymous.
	ErrSessionInvalid = errors.New("session invalid")
)

// Error codes attached to AuthError for user-facing messaging.
const (
	ErrCodeMissingField = "missing_field"
	ErrCodeInvalidCreds = "invalid_credentials"
	ErrCodeInvalidEmail = "invalid_email"
	ErrCodeWeakPassword = "weak_password"
	ErrCodeEmailExists  = "email_exists"
)

// AuthError carries a machine-readable code and the offending field alongside
// the message, for HTTP handlers to render.
type AuthError struct {
	Code    string `json:"code"`
	Message string `json:"error"`
	Field   string `json:"field,omitempty"`
}

func (e *AuthError) Error() string { return e.Message }

// NewAuthError creates an AuthError with the given code, message and field.
func NewAuthError(code, message, field string) *AuthError {
	return &AuthError{Code: code, Message: message, Field: field}
}

// AuthErrorHandler lets applications override how login/signup errors are
// rendered (redirect back to a form, render a template, ...). Returning true
// means the error was handled; false falls through to the default JSON body.
type AuthErrorHandler func(err *AuthError, w http.ResponseWriter, r *http.Request) bool
