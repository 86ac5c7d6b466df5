package wire

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"syscall"
)

var (
	// ErrConnectionClosed is returned when a read cannot make progress because
	// the peer went away. It is a normal termination signal, not a protocol error.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrTruncated is returned when the stream ends before a declared number
	// of payload bytes has been transferred.
	ErrTruncated = errors.New("payload truncated")

	// ErrLineTooLong is returned when a control line exceeds the configured limit.
	ErrLineTooLong = errors.New("line too long")
)

// MalformedHeaderError reports a framing header that did not parse.
// Line holds the raw header so callers can display it.
type MalformedHeaderError struct {
	Line   string
	Reason string
}

func (e *MalformedHeaderError) Error() string {
	return fmt.Sprintf("malformed header %q: %s", e.Line, e.Reason)
}

// SendError wraps a failed write to the peer.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return "send failed: " + e.Err.Error()
}

func (e *SendError) Unwrap() error {
	return e.Err
}

// IsSendError reports whether err is (or wraps) a *SendError.
func IsSendError(err error) bool {
	var se *SendError
	return errors.As(err, &se)
}

// classifyReadError maps transport read errors onto ErrConnectionClosed when
// they mean the peer is gone or the read deadline expired. The original
// error stays reachable through errors.Is/As.
func classifyReadError(err error) error {
	switch {
	case errors.Is(err, io.EOF),
		errors.Is(err, io.ErrUnexpectedEOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, io.ErrClosedPipe),
		errors.Is(err, syscall.ECONNRESET),
		errors.Is(err, syscall.ECONNABORTED),
		errors.Is(err, syscall.EPIPE),
		errors.Is(err, os.ErrDeadlineExceeded):
		return fmt.Errorf("%w: %w", ErrConnectionClosed, err)
	}
	return err
}
