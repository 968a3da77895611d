// Package core holds the error taxonomy shared by the call orchestration
// packages.
package core

import (
	"errors"
	"fmt"
)

// ErrorKind categorizes failures by how the session should react to them.
type ErrorKind string

const (
	// ErrTransient covers collaborator connectivity and timeout failures.
	// The current turn is aborted; the session keeps listening.
	ErrTransient ErrorKind = "transient_network"

	// ErrProtocol covers unexpected event shapes or ordering from a
	// collaborator. Logged and ignored; the session is not torn down.
	ErrProtocol ErrorKind = "protocol_violation"

	// ErrSessionNotFound is returned when an event references an unknown
	// stream. The event is dropped with a warning.
	ErrSessionNotFound ErrorKind = "session_not_found"

	// ErrFatalSession means the telephony connection itself failed. The
	// session is torn down and not retried.
	ErrFatalSession ErrorKind = "fatal_session"
)

// Error is a categorized orchestration error.
type Error struct {
	Kind     ErrorKind
	StreamID string
	Message  string
	Cause    error
}

func (e *Error) Error() string {
	if e.StreamID != "" {
		return fmt.Sprintf("%s: %s (stream: %s)", e.Kind, e.Message, e.StreamID)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewTransient wraps a collaborator connectivity failure.
func NewTransient(message string, cause error) *Error {
	return &Error{Kind: ErrTransient, Message: message, Cause: cause}
}

// NewProtocol wraps an unexpected event shape or ordering.
func NewProtocol(message string, cause error) *Error {
	return &Error{Kind: ErrProtocol, Message: message, Cause: cause}
}

// NewSessionNotFound reports an event for an unknown stream.
func NewSessionNotFound(streamID string) *Error {
	return &Error{Kind: ErrSessionNotFound, StreamID: streamID, Message: "no session for stream"}
}

// NewFatalSession wraps a telephony connection failure.
func NewFatalSession(streamID, message string, cause error) *Error {
	return &Error{Kind: ErrFatalSession, StreamID: streamID, Message: message, Cause: cause}
}

// KindOf extracts the ErrorKind from err, or ErrTransient if err carries no
// classification. Collaborator call sites wrap with fmt.Errorf, so unwrap.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ErrTransient
}

// IsFatal reports whether err should tear the session down.
func IsFatal(err error) bool {
	return KindOf(err) == ErrFatalSession
}
