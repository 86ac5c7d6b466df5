package service

import "errors"

// ErrHandshakeFailed is returned when a peer does not echo its proposed
// identity. The connection is dropped and no session is recorded.
var ErrHandshakeFailed = errors.New("handshake failed")
