// Package service contains the connection lifecycle and command handling.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Sentinel-Gate/filegate/internal/ctxkey"
	"github.com/Sentinel-Gate/filegate/internal/domain/identity"
	"github.com/Sentinel-Gate/filegate/internal/domain/session"
	"github.com/Sentinel-Gate/filegate/internal/port/inbound"
	"github.com/Sentinel-Gate/filegate/internal/port/outbound"
	"github.com/Sentinel-Gate/filegate/pkg/wire"
)

// Responses sent for failed commands.
const (
	msgFileError = "ERROR: File not found or invalid name"
	msgListError = "ERROR: Could not read repository"
	msgStatusErr = "ERROR: Could not build status"
	listPrefix   = "List of files: "
	listEmpty    = "(empty)"
)

// loggerFromContext retrieves the enriched logger from context.
// Returns nil if no logger is in context, allowing caller to fall back.
func loggerFromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxkey.LoggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return nil
}

// HandlerConfig holds per-connection tuning.
type HandlerConfig struct {
	// IdleTimeout bounds each wait for a client line. Zero disables it.
	IdleTimeout time.Duration
	// MaxLineBytes bounds a single client line. Zero uses the wire default.
	MaxLineBytes int
	// ChunkSize is the file streaming buffer size. Zero uses the wire default.
	ChunkSize int
}

// ConnectionHandler runs the per-connection state machine:
// allocate an identity, handshake, serve commands, and clean up.
type ConnectionHandler struct {
	allocator identity.Allocator
	registry  session.Registry
	status    *StatusService
	repo      outbound.Repository
	metrics   outbound.MetricsRecorder
	logger    *slog.Logger
	cfg       HandlerConfig
}

// NewConnectionHandler wires a handler. metrics may be nil.
func NewConnectionHandler(
	allocator identity.Allocator,
	registry session.Registry,
	repo outbound.Repository,
	metrics outbound.MetricsRecorder,
	logger *slog.Logger,
	cfg HandlerConfig,
) *ConnectionHandler {
	if metrics == nil {
		metrics = nopMetrics{}
	}
	return &ConnectionHandler{
		allocator: allocator,
		registry:  registry,
		status:    NewStatusService(allocator, registry),
		repo:      repo,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

// Handle services conn until the peer exits or disappears.
// Cleanup (disconnect stamp, slot release, close) runs exactly once on
// every path, including a panic while serving a command.
func (h *ConnectionHandler) Handle(ctx context.Context, conn net.Conn) {
	logger := loggerFromContext(ctx)
	if logger == nil {
		logger = h.logger.With("remote", conn.RemoteAddr().String())
	}

	opts := []wire.Option{wire.WithChunkSize(h.cfg.ChunkSize)}
	if h.cfg.MaxLineBytes > 0 {
		opts = append(opts, wire.WithMaxLineBytes(h.cfg.MaxLineBytes))
	}

	var rw io.ReadWriter = conn
	if h.cfg.IdleTimeout > 0 {
		rw = deadlineWriter{Conn: conn, timeout: h.cfg.IdleTimeout}
	}

	c := &connection{
		h:      h,
		conn:   conn,
		wc:     wire.NewConn(rw, opts...),
		logger: logger,
		state:  StateConnecting,
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("connection handler panic",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
		c.teardown()
	}()

	c.run()
}

// connection is the state of one Handle call.
type connection struct {
	h      *ConnectionHandler
	conn   net.Conn
	wc     *wire.Conn
	logger *slog.Logger

	state    State
	id       identity.Identity
	recorded bool
	once     sync.Once
}

func (c *connection) run() {
	id, err := c.h.allocator.Allocate()
	if err != nil {
		c.reject(err)
		return
	}
	c.id = id
	c.logger = c.logger.With("client", id.String())
	c.transition(StateHandshaking)

	if err := c.handshake(); err != nil {
		c.h.metrics.ConnectionRejected("handshake")
		c.logger.Info("handshake failed", "error", err)
		return
	}

	c.h.registry.RecordConnect(id, session.AddressFrom(c.conn.RemoteAddr()))
	c.recorded = true
	c.h.metrics.SessionOpened()
	c.transition(StateActive)
	c.logger.Info("client connected")

	c.serve()
}

// reject answers a connection that could not get an identity.
func (c *connection) reject(err error) {
	if errors.Is(err, identity.ErrCapacityExceeded) {
		c.logger.Info("rejecting connection, server full", "capacity", c.h.allocator.Capacity())
		c.h.metrics.ConnectionRejected("busy")
		c.sendBestEffort(wire.BusyNotice(c.h.allocator.Capacity()))
		return
	}
	c.logger.Error("identity allocation failed", "error", err)
}

// handshake proposes the identity and waits for the peer to echo it.
func (c *connection) handshake() error {
	if err := c.wc.WriteLine(wire.Greeting(c.id.String())); err != nil {
		return fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}

	c.armReadDeadline()
	reply, err := c.wc.ReadLine()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
	}
	if strings.TrimSpace(reply) != wire.HandshakeReply(c.id.String()) {
		return fmt.Errorf("%w: unexpected reply %q", ErrHandshakeFailed, reply)
	}
	return nil
}

// serve is the Active command loop.
func (c *connection) serve() {
	for {
		c.armReadDeadline()
		line, err := c.wc.ReadLine()
		if err != nil {
			switch {
			case errors.Is(err, wire.ErrConnectionClosed):
				c.logger.Info("client disconnected without exit", "reason", err)
			case errors.Is(err, wire.ErrLineTooLong):
				c.logger.Warn("dropping client, line too long")
			default:
				c.logger.Warn("read failed", "error", err)
			}
			return
		}

		start := time.Now()
		name, done, err := c.dispatch(line)
		c.h.metrics.CommandHandled(name, time.Since(start))
		if err != nil {
			c.logger.Warn("command failed, dropping client", "command", name, "error", err)
			return
		}
		if done {
			return
		}
	}
}

// dispatch runs one command. It returns the command name for metrics,
// whether the session should end, and any error that leaves the stream
// unusable.
func (c *connection) dispatch(line string) (string, bool, error) {
	verb, arg := wire.ParseCommand(line)

	switch {
	case verb == wire.CmdExit && arg == "":
		c.sendBestEffort(wire.ExitAck)
		c.transition(StateClosing)
		c.logger.Info("client requested exit")
		return verb, true, nil

	case verb == wire.CmdStatus && arg == "":
		c.sendStatus()
		return verb, false, nil

	case verb == wire.CmdList && arg == "":
		c.sendList()
		return verb, false, nil

	case verb == wire.CmdPrint:
		return verb, false, c.sendFile(arg)

	default:
		c.sendBestEffort(wire.Ack(line))
		return "echo", false, nil
	}
}

func (c *connection) sendStatus() {
	data, err := wire.EncodeStatus(c.h.status.Report())
	if err != nil {
		c.logger.Error("encode status", "error", err)
		c.sendBestEffort(msgStatusErr)
		return
	}
	if err := c.wc.WritePayload(wire.TagStatus, data); err != nil {
		c.logger.Debug("status send failed", "error", err)
	}
}

func (c *connection) sendList() {
	names, err := c.h.repo.List()
	if err != nil {
		c.logger.Error("list repository", "error", err)
		c.sendBestEffort(msgListError)
		return
	}
	if len(names) == 0 {
		c.sendBestEffort(listPrefix + listEmpty)
		return
	}
	c.sendBestEffort(listPrefix + strings.Join(names, ", "))
}

// sendFile streams a repository file. Rejections are answered with an
// error line and keep the session open. Any failure after the header is
// returned as an error: the framing is broken once a FILE payload is cut
// short, in either direction.
func (c *connection) sendFile(name string) error {
	f, size, err := c.h.repo.Open(name)
	if err != nil {
		c.logger.Debug("file request rejected", "name", name, "error", err)
		c.sendBestEffort(msgFileError)
		return nil
	}
	defer f.Close()

	digest := xxhash.New()
	err = c.wc.WriteFile(name, size, io.TeeReader(f, digest))
	switch {
	case err == nil:
		c.h.metrics.FileBytesSent(size)
		c.logger.Info("file served",
			"name", name,
			"size", size,
			"xxh64", fmt.Sprintf("%016x", digest.Sum64()),
		)
		return nil
	case wire.IsSendError(err):
		return fmt.Errorf("send %s: %w", name, err)
	default:
		return fmt.Errorf("stream %s: %w", name, err)
	}
}

// sendBestEffort writes a line and discards a send failure. A dead socket
// surfaces on the next read, which ends the session through the normal
// cleanup path.
func (c *connection) sendBestEffort(line string) {
	if err := c.wc.WriteLine(line); err != nil {
		c.logger.Debug("send failed", "error", err)
	}
}

// deadlineWriter re-arms the write deadline before every write, so a peer
// that stops reading cannot hold its slot through a blocked send.
type deadlineWriter struct {
	net.Conn
	timeout time.Duration
}

func (d deadlineWriter) Write(p []byte) (int, error) {
	if err := d.Conn.SetWriteDeadline(time.Now().Add(d.timeout)); err != nil {
		return 0, err
	}
	return d.Conn.Write(p)
}

func (c *connection) armReadDeadline() {
	if c.h.cfg.IdleTimeout <= 0 {
		return
	}
	_ = c.conn.SetReadDeadline(time.Now().Add(c.h.cfg.IdleTimeout))
}

func (c *connection) transition(to State) {
	if c.state == to {
		return
	}
	c.logger.Debug("state transition", "from", c.state.String(), "to", to.String())
	c.state = to
}

// teardown is the single cleanup sequence for every exit path.
func (c *connection) teardown() {
	c.once.Do(func() {
		if c.state == StateActive {
			c.transition(StateClosing)
		}
		if c.recorded {
			c.h.registry.RecordDisconnect(c.id)
			c.h.metrics.SessionClosed()
		}
		if c.id != "" {
			c.h.allocator.Release(c.id)
		}
		_ = wire.CloseWrite(c.conn)
		_ = c.conn.Close()
		c.transition(StateClosed)
		if c.recorded {
			c.logger.Info("client session closed")
		}
	})
}

// Compile-time interface verification.
var _ inbound.ConnectionHandler = (*ConnectionHandler)(nil)
