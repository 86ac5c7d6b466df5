// Package wire implements the line-oriented framing spoken between filegate
// servers and clients: newline-terminated control lines, length-prefixed
// payloads, and raw byte-count file transfers.
package wire

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

const (
	// DefaultMaxLineBytes bounds a single control line.
	DefaultMaxLineBytes = 64 * 1024

	// DefaultChunkSize is the buffer size used when streaming files.
	DefaultChunkSize = 64 * 1024

	// DefaultMaxPayloadBytes bounds a length-prefixed payload read into memory.
	DefaultMaxPayloadBytes = 16 * 1024 * 1024
)

// Conn layers the framing primitives over a byte stream.
// A Conn is not safe for concurrent use; each connection is owned by one goroutine.
type Conn struct {
	rw         io.ReadWriter
	r          *bufio.Reader
	maxLine    int
	chunkSize  int
	maxPayload int64
}

// Option configures a Conn.
type Option func(*Conn)

// WithMaxLineBytes sets the control line limit. Zero or less disables it.
func WithMaxLineBytes(n int) Option {
	return func(c *Conn) { c.maxLine = n }
}

// WithChunkSize sets the file streaming chunk size.
func WithChunkSize(n int) Option {
	return func(c *Conn) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithMaxPayloadBytes sets the limit for ReadPayload.
func WithMaxPayloadBytes(n int64) Option {
	return func(c *Conn) {
		if n > 0 {
			c.maxPayload = n
		}
	}
}

// NewConn wraps rw. Reads are buffered; writes go straight to rw.
func NewConn(rw io.ReadWriter, opts ...Option) *Conn {
	c := &Conn{
		rw:         rw,
		r:          bufio.NewReader(rw),
		maxLine:    DefaultMaxLineBytes,
		chunkSize:  DefaultChunkSize,
		maxPayload: DefaultMaxPayloadBytes,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ReadLine returns the next line without its terminator.
//
// If the stream ends after some bytes but before a newline, the partial
// line is returned with a nil error so a short final message is not lost.
// If it ends with nothing buffered, the error wraps ErrConnectionClosed.
// Invalid UTF-8 sequences are dropped.
func (c *Conn) ReadLine() (string, error) {
	var buf []byte
	for {
		frag, err := c.r.ReadSlice('\n')
		buf = append(buf, frag...)
		if c.maxLine > 0 && len(buf) > c.maxLine+1 {
			return "", ErrLineTooLong
		}
		if err == nil {
			break
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if errors.Is(err, io.EOF) && len(buf) > 0 {
			break
		}
		return "", classifyReadError(err)
	}

	line := strings.TrimSuffix(string(buf), "\n")
	line = strings.TrimSuffix(line, "\r")
	if c.maxLine > 0 && len(line) > c.maxLine {
		return "", ErrLineTooLong
	}
	return strings.ToValidUTF8(line, ""), nil
}

// WriteLine sends s followed by a newline in a single write.
func (c *Conn) WriteLine(s string) error {
	return c.write([]byte(s + "\n"))
}

// WritePayload sends "<tag> <len>\n" followed by data in a single write.
func (c *Conn) WritePayload(tag string, data []byte) error {
	header := tag + " " + strconv.Itoa(len(data)) + "\n"
	msg := make([]byte, 0, len(header)+len(data))
	msg = append(msg, header...)
	msg = append(msg, data...)
	return c.write(msg)
}

// ReadPayload reads a "<tag> <len>" header and exactly len bytes.
// A header that does not parse yields a *MalformedHeaderError; the stream
// ending early yields ErrTruncated.
func (c *Conn) ReadPayload(tag string) ([]byte, error) {
	line, err := c.ReadLine()
	if err != nil {
		return nil, err
	}
	n, err := ParseHeader(line, tag)
	if err != nil {
		return nil, err
	}
	if n > c.maxPayload {
		return nil, &MalformedHeaderError{Line: line, Reason: "payload exceeds limit"}
	}

	data := make([]byte, n)
	if _, err := io.ReadFull(c.r, data); err != nil {
		return nil, truncated(err)
	}
	return data, nil
}

// WriteFile sends a "FILE <name> <size>" header and then exactly size bytes
// from src, streamed in chunks of the configured size.
// If src ends early the peer has been promised bytes that will never come,
// so the error wraps ErrTruncated and the caller must drop the connection.
func (c *Conn) WriteFile(name string, size int64, src io.Reader) error {
	if err := c.WriteLine(FileHeader(name, size)); err != nil {
		return err
	}

	buf := make([]byte, c.chunkSize)
	var sent int64
	for sent < size {
		want := int64(len(buf))
		if rem := size - sent; rem < want {
			want = rem
		}
		n, rerr := io.ReadFull(src, buf[:want])
		if n > 0 {
			if err := c.write(buf[:n]); err != nil {
				return err
			}
			sent += int64(n)
		}
		if rerr != nil {
			return fmt.Errorf("%w: source ended after %d of %d bytes", ErrTruncated, sent, size)
		}
	}
	return nil
}

// ReadExact copies exactly n bytes from the stream to dst.
// Errors from dst are returned unchanged; the stream ending early wraps ErrTruncated.
func (c *Conn) ReadExact(n int64, dst io.Writer) error {
	tw := &trackingWriter{w: dst}
	if _, err := io.CopyN(tw, c.r, n); err != nil {
		if tw.err != nil {
			return tw.err
		}
		return truncated(err)
	}
	return nil
}

// trackingWriter remembers the first write error so ReadExact can tell
// destination failures apart from a short stream.
type trackingWriter struct {
	w   io.Writer
	err error
}

func (t *trackingWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil && t.err == nil {
		t.err = err
	}
	return n, err
}

func (c *Conn) write(b []byte) error {
	if _, err := c.rw.Write(b); err != nil {
		return &SendError{Err: err}
	}
	return nil
}

func truncated(err error) error {
	return fmt.Errorf("%w: %w", ErrTruncated, err)
}

// CloseWrite half-closes the write side of rw when the transport supports
// it (e.g. *net.TCPConn), so the peer sees EOF after buffered data.
func CloseWrite(rw any) error {
	if cw, ok := rw.(interface{ CloseWrite() error }); ok {
		return cw.CloseWrite()
	}
	return nil
}
