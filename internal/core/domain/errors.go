package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown exporter type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Error kinds. Every error returned from a public export operation
	// matches exactly one of these with errors.Is.

	// ErrAuthorization is a user-facing failure that is resolved by
	// authorizing again (missing code, rejected scopes, provider error).
	ErrAuthorization = errors.New("authorization failed")

	// ErrCommunication is a transport-level failure (connection, unexpected
	// status or JSON shape). The whole operation may be retried.
	ErrCommunication = errors.New("communication error")

	// ErrUpload is a failure while transferring capture bytes.
	ErrUpload = errors.New("upload failed")

	// ErrConfiguration is a local setup problem (port in use, missing client id).
	ErrConfiguration = errors.New("configuration error")

	// Authentication Errors.

	// ErrAuthRequired indicates the account holds no usable token.
	ErrAuthRequired = errors.New("authentication required")

	// ErrRefreshTokenRevoked is reported by the token endpoint when the
	// refresh token has expired or been revoked.
	ErrRefreshTokenRevoked = errors.New("refresh token expired or revoked")

	// ErrReauthorizationRequired indicates stored tokens were cleared and
	// the user must authorize the account again.
	ErrReauthorizationRequired = errors.New("re-authorization required")

	// ErrMissingScopes indicates the provider no longer grants a scope
	// that was granted before.
	ErrMissingScopes = errors.New("missing authorization scopes")

	// ErrAuthorizationInProgress indicates another authorization is running.
	ErrAuthorizationInProgress = errors.New("authorization already in progress")

	// ErrTimedOut indicates the browser redirect never arrived.
	ErrTimedOut = errors.New("timed out waiting for authorization")

	// ErrCancelled indicates the caller cancelled the operation.
	ErrCancelled = errors.New("operation cancelled")

	// Upload Errors.

	// ErrResumeNotImplemented marks a server-side (5xx) failure during a
	// session upload. Sessions are never resumed from the last offset.
	ErrResumeNotImplemented = errors.New("upload resume not implemented")
)

// ExportError is the single failure signal returned by public operations.
// It carries a Kind (one of the error kind sentinels), the operation name,
// the raw provider text when there is one, and the original cause.
type ExportError struct {
	Kind   error
	Op     string
	Detail string
	Err    error
}

// NewError builds an ExportError.
func NewError(kind error, op string, err error) *ExportError {
	return &ExportError{Kind: kind, Op: op, Err: err}
}

// WithDetail attaches raw provider text for diagnostics.
func (e *ExportError) WithDetail(detail string) *ExportError {
	e.Detail = detail
	return e
}

// Error implements error.
func (e *ExportError) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Detail != "" {
		msg += fmt.Sprintf(" (provider said: %s)", e.Detail)
	}
	return msg
}

// Unwrap exposes both the kind and the cause to errors.Is and errors.As.
func (e *ExportError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// AsExportError wraps err as an ExportError of the given kind unless it
// already is one, in which case it is returned unchanged.
func AsExportError(kind error, op string, err error) error {
	if err == nil {
		return nil
	}
	var ee *ExportError
	if errors.As(err, &ee) {
		return err
	}
	return NewError(kind, op, err)
}
