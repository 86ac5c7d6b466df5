package client

import (
	"errors"
	"fmt"
)

// Sentinel errors for use with errors.Is().
var (
	// ErrBusy is returned by Dial when every server slot is taken.
	ErrBusy = errors.New("server busy")

	// ErrServerRejected is returned when the server answers a request with an ERROR line.
	ErrServerRejected = errors.New("server rejected request")

	// ErrUnexpectedReply is returned when the server's reply does not fit the protocol.
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// BusyError carries the server's busy notice.
type BusyError struct {
	// Message is the notice exactly as the server sent it.
	Message string
}

// Error returns the server's notice.
func (e *BusyError) Error() string {
	return e.Message
}

// Is supports errors.Is(err, ErrBusy).
func (e *BusyError) Is(target error) bool {
	return target == ErrBusy
}

// ServerError carries an ERROR line sent in place of a response.
type ServerError struct {
	// Message is the text after the "ERROR: " prefix.
	Message string
}

// Error returns a description including the server's message.
func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: %s", e.Message)
}

// Is supports errors.Is(err, ErrServerRejected).
func (e *ServerError) Is(target error) bool {
	return target == ErrServerRejected
}

// UnexpectedReplyError carries a line the client could not interpret.
// Callers that want to show it to a user can print Line verbatim.
type UnexpectedReplyError struct {
	// Line is the raw line received.
	Line string
	// Err is the parse failure, if any.
	Err error
}

// Error returns a description including the raw line.
func (e *UnexpectedReplyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unexpected reply %q: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("unexpected reply %q", e.Line)
}

// Unwrap returns the parse failure.
func (e *UnexpectedReplyError) Unwrap() error {
	return e.Err
}

// Is supports errors.Is(err, ErrUnexpectedReply).
func (e *UnexpectedReplyError) Is(target error) bool {
	return target == ErrUnexpectedReply
}
