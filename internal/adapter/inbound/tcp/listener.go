// Package tcp provides the TCP listener adapter that feeds accepted
// connections to the connection handler.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/Sentinel-Gate/filegate/internal/ctxkey"
	"github.com/Sentinel-Gate/filegate/internal/port/inbound"
)

// Backoff bounds for transient accept failures.
const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// Listener accepts TCP connections and runs one handler goroutine per
// connection. Handlers run independently; a slow or stuck client never
// blocks the accept loop.
type Listener struct {
	addr    string
	handler inbound.ConnectionHandler
	logger  *slog.Logger

	// mu guards ln, conns and closing, and orders wg.Add against the
	// wg.Wait in Shutdown.
	mu      sync.Mutex
	ln      net.Listener
	conns   map[net.Conn]struct{}
	closing bool
	wg      sync.WaitGroup
}

// Option is a functional option for configuring Listener.
type Option func(*Listener)

// WithLogger sets the logger for the listener and the per-connection loggers
// derived from it.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		l.logger = logger
	}
}

// NewListener creates a listener for addr ("host:port").
func NewListener(addr string, handler inbound.ConnectionHandler, opts ...Option) *Listener {
	l := &Listener{
		addr:    addr,
		handler: handler,
		logger:  slog.Default(),
		conns:   make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Listen binds the socket. Serve calls it when it has not been called yet;
// calling it first lets the caller learn the bound address before serving.
func (l *Listener) Listen() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln != nil {
		return nil
	}
	ln, err := net.Listen("tcp", l.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", l.addr, err)
	}
	l.ln = ln
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (l *Listener) Addr() net.Addr {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.ln == nil {
		return nil
	}
	return l.ln.Addr()
}

// Serve accepts connections until ctx is cancelled or the listener fails.
// Cancelling ctx stops accepting; it does not interrupt active sessions.
// Use Shutdown to wait for them.
func (l *Listener) Serve(ctx context.Context) error {
	if err := l.Listen(); err != nil {
		return err
	}

	l.mu.Lock()
	ln := l.ln
	l.mu.Unlock()

	l.logger.Info("accepting connections", "addr", ln.Addr().String())

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = ln.Close()
		case <-stop:
		}
	}()

	// Sessions outlive ctx; only values flow through.
	connCtx := context.WithoutCancel(ctx)

	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				l.logger.Info("listener stopped", "addr", ln.Addr().String())
				return nil
			}
			if !isTransientAcceptError(err) {
				return fmt.Errorf("accept: %w", err)
			}

			if backoff == 0 {
				backoff = minAcceptBackoff
			} else {
				backoff = min(backoff*2, maxAcceptBackoff)
			}
			l.logger.Warn("accept failed, retrying", "error", err, "backoff", backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
			}
			continue
		}
		backoff = 0

		l.dispatch(connCtx, conn)
	}
}

// dispatch tags the connection with a conn_id logger and runs the handler.
// Connections accepted after Shutdown has begun are closed unhandled.
func (l *Listener) dispatch(ctx context.Context, conn net.Conn) {
	connLogger := l.logger.With(
		"conn_id", uuid.New().String(),
		"remote", conn.RemoteAddr().String(),
	)
	ctx = context.WithValue(ctx, ctxkey.LoggerKey{}, connLogger)

	l.mu.Lock()
	if l.closing {
		l.mu.Unlock()
		connLogger.Debug("shutting down, dropping connection")
		_ = conn.Close()
		return
	}
	l.conns[conn] = struct{}{}
	l.wg.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.wg.Done()
		defer l.untrack(conn)
		connLogger.Debug("connection accepted")
		l.handler.Handle(ctx, conn)
	}()
}

// Shutdown closes the listener and waits for active handlers to finish.
// It may run while Serve is still accepting.
// If ctx expires first, remaining connections are closed forcibly, their
// handlers run their normal cleanup, and ctx's error is returned.
func (l *Listener) Shutdown(ctx context.Context) error {
	l.mu.Lock()
	l.closing = true
	if l.ln != nil {
		_ = l.ln.Close()
	}
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	l.mu.Lock()
	n := len(l.conns)
	for conn := range l.conns {
		_ = conn.Close()
	}
	l.mu.Unlock()
	l.logger.Warn("drain timeout, closed remaining connections", "count", n)

	<-done
	return ctx.Err()
}

// ActiveConnections returns the number of connections with a running handler.
func (l *Listener) ActiveConnections() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.conns)
}

func (l *Listener) untrack(conn net.Conn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.conns, conn)
}

// isTransientAcceptError reports accept failures worth retrying:
// timeouts, descriptor exhaustion and connections aborted before accept.
func isTransientAcceptError(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ENOBUFS)
}
