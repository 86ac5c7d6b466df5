// Package client is a Go client for filegate servers.
//
//	c, err := client.Dial(ctx, "127.0.0.1:5000")
//	if errors.Is(err, client.ErrBusy) {
//	    // server full
//	}
//	defer c.Close()
//
//	names, err := c.List()
//	res, err := c.Fetch("report.txt", file)
//	err = c.Exit()
//
// A Client is not safe for concurrent use: the protocol is strictly
// request/response on a single connection.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/Sentinel-Gate/filegate/pkg/wire"
)

const (
	defaultTimeout = 10 * time.Second

	listPrefix = "List of files: "
	listEmpty  = "(empty)"
)

// Client is a connected, handshaken filegate session.
type Client struct {
	conn net.Conn
	wc   *wire.Conn
	name string

	timeout    time.Duration
	maxPayload int64
	logger     *slog.Logger
}

// FetchResult describes a completed file transfer.
type FetchResult struct {
	Name string
	Size int64
	// XXH64 is the xxHash64 of the received bytes, for comparison with the
	// digest in the server's log.
	XXH64 uint64
}

// Dial connects to addr and completes the identity handshake.
// A full server yields a *BusyError (errors.Is(err, ErrBusy)).
func Dial(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	c := &Client{
		timeout: defaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	var d net.Dialer
	if c.timeout > 0 {
		d.Timeout = c.timeout
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	c.conn = conn
	wireOpts := []wire.Option{}
	if c.maxPayload > 0 {
		wireOpts = append(wireOpts, wire.WithMaxPayloadBytes(c.maxPayload))
	}
	c.wc = wire.NewConn(conn, wireOpts...)

	if err := c.handshake(); err != nil {
		_ = conn.Close()
		return nil, err
	}
	c.logger.Debug("connected", "addr", addr, "name", c.name)
	return c, nil
}

// handshake reads the greeting and accepts the proposed identity.
func (c *Client) handshake() error {
	c.armDeadline()
	greeting, err := c.wc.ReadLine()
	if err != nil {
		return fmt.Errorf("read greeting: %w", err)
	}

	switch {
	case strings.HasPrefix(greeting, wire.BusyPrefix):
		return &BusyError{Message: greeting}
	case strings.HasPrefix(greeting, wire.GreetingPrefix):
		c.name = strings.TrimSpace(strings.TrimPrefix(greeting, wire.GreetingPrefix))
	default:
		return &UnexpectedReplyError{Line: greeting}
	}

	if err := c.wc.WriteLine(wire.HandshakeReply(c.name)); err != nil {
		return fmt.Errorf("send handshake: %w", err)
	}
	return nil
}

// Name returns the identity the server assigned.
func (c *Client) Name() string {
	return c.name
}

// Send writes a raw line and returns the single-line reply.
func (c *Client) Send(line string) (string, error) {
	c.armDeadline()
	if err := c.wc.WriteLine(line); err != nil {
		return "", err
	}
	return c.wc.ReadLine()
}

// Echo sends msg and returns the acknowledged text with the " ACK" suffix removed.
func (c *Client) Echo(msg string) (string, error) {
	reply, err := c.Send(msg)
	if err != nil {
		return "", err
	}
	acked, ok := strings.CutSuffix(reply, wire.AckSuffix)
	if !ok {
		return "", &UnexpectedReplyError{Line: reply}
	}
	return acked, nil
}

// Status requests the server's status report.
// A reply that is not a STATUS payload is returned as *UnexpectedReplyError
// or *ServerError holding the line the server sent.
func (c *Client) Status() (wire.StatusReport, error) {
	c.armDeadline()
	if err := c.wc.WriteLine(wire.CmdStatus); err != nil {
		return wire.StatusReport{}, err
	}

	data, err := c.wc.ReadPayload(wire.TagStatus)
	if err != nil {
		var mh *wire.MalformedHeaderError
		if errors.As(err, &mh) {
			return wire.StatusReport{}, replyError(mh.Line, err)
		}
		return wire.StatusReport{}, err
	}

	report, err := wire.DecodeStatus(data)
	if err != nil {
		return wire.StatusReport{}, &UnexpectedReplyError{Line: string(data), Err: err}
	}
	return report, nil
}

// List returns the names of files the server offers.
func (c *Client) List() ([]string, error) {
	reply, err := c.Send(wire.CmdList)
	if err != nil {
		return nil, err
	}

	rest, ok := strings.CutPrefix(reply, listPrefix)
	if !ok {
		return nil, replyError(reply, nil)
	}
	if rest == listEmpty || rest == "" {
		return nil, nil
	}
	return strings.Split(rest, ", "), nil
}

// Fetch requests name and streams its content to dst.
// A rejected name yields a *ServerError; the session stays usable.
func (c *Client) Fetch(name string, dst io.Writer) (FetchResult, error) {
	c.armDeadline()
	if err := c.wc.WriteLine(wire.CmdPrint + " " + name); err != nil {
		return FetchResult{}, err
	}

	header, err := c.wc.ReadLine()
	if err != nil {
		return FetchResult{}, err
	}
	gotName, size, err := wire.ParseFileHeader(header)
	if err != nil {
		return FetchResult{}, replyError(header, err)
	}

	digest := xxhash.New()
	w := &deadlineWriter{w: io.MultiWriter(dst, digest), c: c}
	if err := c.wc.ReadExact(size, w); err != nil {
		return FetchResult{}, fmt.Errorf("receive %s: %w", gotName, err)
	}

	return FetchResult{Name: gotName, Size: size, XXH64: digest.Sum64()}, nil
}

// Exit ends the session politely and closes the connection.
func (c *Client) Exit() error {
	reply, err := c.Send(wire.CmdExit)
	closeErr := c.Close()
	if err != nil {
		return err
	}
	if reply != wire.ExitAck {
		return &UnexpectedReplyError{Line: reply}
	}
	return closeErr
}

// Close drops the connection without the exit exchange.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) armDeadline() {
	if c.timeout <= 0 {
		return
	}
	_ = c.conn.SetDeadline(time.Now().Add(c.timeout))
}

// replyError classifies a line that was not the expected response.
func replyError(line string, err error) error {
	if msg, ok := strings.CutPrefix(line, wire.ErrorPrefix); ok {
		return &ServerError{Message: msg}
	}
	return &UnexpectedReplyError{Line: line, Err: err}
}

// deadlineWriter pushes the connection deadline forward as data arrives,
// so the timeout bounds stalls rather than total transfer time.
type deadlineWriter struct {
	w io.Writer
	c *Client
}

func (d *deadlineWriter) Write(p []byte) (int, error) {
	d.c.armDeadline()
	return d.w.Write(p)
}
