// internal/domain/errors.go
package domain

import "fmt"

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	KindMissingFile          ErrorKind = "MissingFile"
	KindMissingConfiguration ErrorKind = "MissingConfiguration"
	KindMalformedCredential  ErrorKind = "MalformedCredential"
	KindSigningFailure       ErrorKind = "SigningFailure"
	KindTokenExchangeFailed  ErrorKind = "TokenExchangeFailed"
	KindUploadFailed         ErrorKind = "UploadFailed"
	// KindAuditPersistFailure is the only non-fatal kind.
	KindAuditPersistFailure ErrorKind = "AuditPersistFailure"
)

// Sentinels for errors.Is. They match any *Error of the same kind.
var (
	ErrMissingFile          = &Error{Kind: KindMissingFile}
	ErrMissingConfiguration = &Error{Kind: KindMissingConfiguration}
	ErrMalformedCredential  = &Error{Kind: KindMalformedCredential}
	ErrSigningFailure       = &Error{Kind: KindSigningFailure}
	ErrTokenExchangeFailed  = &Error{Kind: KindTokenExchangeFailed}
	ErrUploadFailed         = &Error{Kind: KindUploadFailed}
	ErrAuditPersistFailure  = &Error{Kind: KindAuditPersistFailure}
)

// Error is a classified pipeline failure. Status and Body are set when the
// failure came from an upstream HTTP response.
type Error struct {
	Kind    ErrorKind
	Message string
	Status  int
	Body    string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// Fatal reports whether the failure aborts the pipeline.
func (e *Error) Fatal() bool {
	return e.Kind != KindAuditPersistFailure
}

// NewError builds an *Error of kind with a message and optional cause.
func NewError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// NewHTTPError builds an *Error for a non-success upstream response.
func NewHTTPError(kind ErrorKind, message string, status int, body string) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf("%s: %d", message, status),
		Status:  status,
		Body:    body,
	}
}
