package client

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithTimeout bounds each request/response exchange, including the
// handshake. Zero disables deadlines. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithMaxPayloadBytes bounds the status payload the client will read.
func WithMaxPayloadBytes(n int64) Option {
	return func(c *Client) {
		c.maxPayload = n
	}
}
