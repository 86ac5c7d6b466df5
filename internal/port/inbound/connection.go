// Package inbound defines the inbound port interfaces for the server core.
// Inbound adapters (TCP listener) call these interfaces.
package inbound

import (
	"context"
	"net"
)

// ConnectionHandler is the inbound port that services one accepted connection.
type ConnectionHandler interface {
	// Handle owns conn for its whole lifetime and closes it before returning.
	// The context carries request-scoped values only; it is not used to
	// interrupt an active connection.
	Handle(ctx context.Context, conn net.Conn)
}
