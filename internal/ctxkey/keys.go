// Package ctxkey defines context key types shared across packages.
// It must not import other internal packages.
package ctxkey

// LoggerKey is the context key for a request- or connection-scoped logger.
// The TCP listener stores one tagged with conn_id and remote; the admin HTTP
// middleware stores one tagged with request_id.
type LoggerKey struct{}
