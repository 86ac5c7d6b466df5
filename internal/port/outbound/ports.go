// Package outbound defines the outbound port interfaces the server core
// depends on: the file repository and the metrics sink.
package outbound

import (
	"io"
	"time"
)

// Repository serves files from a flat directory.
type Repository interface {
	// List returns the names of servable files, sorted.
	List() ([]string, error)

	// Open returns a reader for the named file and its size in bytes.
	// Rejected or missing names return an error matching repo.ErrInvalidRequest.
	Open(name string) (io.ReadCloser, int64, error)
}

// MetricsRecorder receives connection lifecycle and command events.
type MetricsRecorder interface {
	// ConnectionRejected counts a connection dropped before becoming active.
	// reason is "busy" or "handshake".
	ConnectionRejected(reason string)

	// SessionOpened counts a connection that completed its handshake.
	SessionOpened()

	// SessionClosed counts the end of an active session.
	SessionClosed()

	// CommandHandled records one command and how long its response took.
	CommandHandled(command string, d time.Duration)

	// FileBytesSent adds to the streamed file byte total.
	FileBytesSent(n int64)
}
