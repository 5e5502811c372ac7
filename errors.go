package turnkit

import (
	"errors"
	"fmt"
)

// ErrPermissionDenied marks permission-related tool failures. Tool handlers
// wrap it (fmt.Errorf("...: %w", turnkit.ErrPermissionDenied)) so the
// gateway can classify the outcome as permission-denied rather than a
// generic execution error.
var ErrPermissionDenied = errors.New("permission denied")

// TransportError reports a failed exchange with the model backend: a
// non-success HTTP status before any event, or a connection failure
// mid-stream. It is the only failure surfaced to the caller outside the
// normal turn flow; tool failures are folded into the conversation as
// tool turns instead.
type TransportError struct {
	// StatusCode is the HTTP status, or 0 for connection-level failures.
	StatusCode int
	// Body is the response body, if any.
	Body string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a formatted description of the transport failure.
func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Body != "":
		return fmt.Sprintf("backend: status %d: %s", e.StatusCode, e.Body)
	case e.StatusCode != 0:
		return fmt.Sprintf("backend: status %d", e.StatusCode)
	case e.Cause != nil:
		return fmt.Sprintf("backend: %v", e.Cause)
	}
	return "backend: transport failure"
}

// Unwrap returns the underlying error for use with errors.Is and errors.As.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// IsPermissionDenied reports whether err is, or wraps, ErrPermissionDenied.
func IsPermissionDenied(err error) bool {
	return errors.Is(err, ErrPermissionDenied)
}
