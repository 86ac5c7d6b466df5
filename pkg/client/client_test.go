package client

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/goleak"

	"github.com/Sentinel-Gate/filegate/internal/adapter/inbound/tcp"
	"github.com/Sentinel-Gate/filegate/internal/adapter/outbound/memory"
	"github.com/Sentinel-Gate/filegate/internal/adapter/outbound/repo"
	"github.com/Sentinel-Gate/filegate/internal/service"
	"github.com/Sentinel-Gate/filegate/pkg/wire"
)

// testServer runs a real filegate server on a loopback port.
type testServer struct {
	addr  string
	alloc *memory.SlotAllocator
	stop  func()
}

func startServer(t *testing.T, capacity int, files map[string]string) *testServer {
	t.Helper()

	dir := t.TempDir()
	for name, content := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	alloc := memory.NewSlotAllocator(capacity)
	handler := service.NewConnectionHandler(alloc, memory.NewSessionRegistry(), repo.New(dir), nil, logger,
		service.HandlerConfig{ChunkSize: 1024})

	l := tcp.NewListener("127.0.0.1:0", handler, tcp.WithLogger(logger))
	if err := l.Listen(); err != nil {
		t.Fatalf("Listen: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan struct{})
	go func() {
		defer close(served)
		_ = l.Serve(ctx)
	}()

	return &testServer{
		addr:  l.Addr().String(),
		alloc: alloc,
		stop: func() {
			cancel()
			<-served
			sctx, done := context.WithTimeout(context.Background(), 5*time.Second)
			defer done()
			_ = l.Shutdown(sctx)
		},
	}
}

func dial(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := Dial(context.Background(), addr, WithTimeout(5*time.Second))
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	return c
}

// waitForInUse polls until the server's slot count settles at want.
// Slot release happens in the server's cleanup, after the client has seen
// the final reply.
func waitForInUse(t *testing.T, srv *testServer, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for srv.alloc.InUse() != want {
		if time.Now().After(deadline) {
			t.Fatalf("InUse = %d, want %d", srv.alloc.InUse(), want)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClient_Session(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := startServer(t, 3, map[string]string{"b.txt": "bee", "a.txt": "ay"})
	defer srv.stop()

	c := dial(t, srv.addr)
	if c.Name() != "Client01" {
		t.Errorf("Name = %q, want Client01", c.Name())
	}

	got, err := c.Echo("hello there")
	if err != nil || got != "hello there" {
		t.Errorf("Echo = %q, %v", got, err)
	}

	names, err := c.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if strings.Join(names, ",") != "a.txt,b.txt" {
		t.Errorf("List = %v, want [a.txt b.txt]", names)
	}

	report, err := c.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if report.Capacity != 3 || report.Active != 1 || len(report.Clients) != 1 {
		t.Errorf("report = %+v", report)
	}
	if ep := report.Clients[0].Address; ep.Host != "127.0.0.1" || ep.Port == 0 {
		t.Errorf("client address = %+v, want loopback with port", ep)
	}

	if err := c.Exit(); err != nil {
		t.Errorf("Exit: %v", err)
	}
}

func TestClient_Fetch(t *testing.T) {
	defer goleak.VerifyNone(t)

	big := strings.Repeat("filegate ", 1000)
	srv := startServer(t, 1, map[string]string{"big.txt": big, "empty": ""})
	defer srv.stop()

	c := dial(t, srv.addr)
	defer c.Close()

	var buf bytes.Buffer
	res, err := c.Fetch("big.txt", &buf)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.Name != "big.txt" || res.Size != int64(len(big)) {
		t.Errorf("result = %+v", res)
	}
	if buf.String() != big {
		t.Error("content mismatch")
	}
	if res.XXH64 != xxhash.Sum64String(big) {
		t.Errorf("XXH64 = %016x, want %016x", res.XXH64, xxhash.Sum64String(big))
	}

	buf.Reset()
	res, err = c.Fetch("empty", &buf)
	if err != nil || res.Size != 0 || buf.Len() != 0 {
		t.Errorf("empty fetch = %+v, %v (len %d)", res, err, buf.Len())
	}

	_, err = c.Fetch("../../etc/passwd", io.Discard)
	if !errors.Is(err, ErrServerRejected) {
		t.Errorf("traversal fetch error = %v, want ErrServerRejected", err)
	}

	// Still usable after a rejection.
	if _, err := c.Echo("ok"); err != nil {
		t.Errorf("Echo after rejection: %v", err)
	}
}

func TestClient_Busy(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := startServer(t, 1, nil)
	defer srv.stop()

	first := dial(t, srv.addr)

	_, err := Dial(context.Background(), srv.addr, WithTimeout(5*time.Second))
	if !errors.Is(err, ErrBusy) {
		t.Fatalf("second Dial error = %v, want ErrBusy", err)
	}
	var busy *BusyError
	if !errors.As(err, &busy) || busy.Message != wire.BusyNotice(1) {
		t.Errorf("busy message = %v, want %q", err, wire.BusyNotice(1))
	}

	if err := first.Exit(); err != nil {
		t.Fatalf("Exit: %v", err)
	}

	waitForInUse(t, srv, 0)
	again := dial(t, srv.addr)
	if again.Name() != "Client01" {
		t.Errorf("reused Name = %q, want Client01", again.Name())
	}
	_ = again.Exit()
}

func TestClient_StatusAfterDisconnect(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := startServer(t, 3, nil)
	defer srv.stop()

	a := dial(t, srv.addr)
	defer a.Close()
	b := dial(t, srv.addr)

	// Abrupt drop without exit.
	_ = b.Close()

	waitForInUse(t, srv, 1)

	report, err := a.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if report.Active != 1 || len(report.Clients) != 2 {
		t.Fatalf("report = %+v", report)
	}
	if report.Clients[1].Name != "Client02" || report.Clients[1].DisconnectedAt == nil {
		t.Errorf("Client02 = %+v, want a disconnect time", report.Clients[1])
	}
}

func TestClient_UnexpectedGreeting(t *testing.T) {
	defer goleak.VerifyNone(t)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = io.WriteString(conn, "HELLO stranger\n")
		_, _ = io.Copy(io.Discard, conn)
	}()

	_, err = Dial(context.Background(), ln.Addr().String(), WithTimeout(5*time.Second))
	var ue *UnexpectedReplyError
	if !errors.As(err, &ue) || ue.Line != "HELLO stranger" {
		t.Errorf("Dial error = %v, want UnexpectedReplyError with greeting", err)
	}
	<-done
}

func TestReplyError(t *testing.T) {
	tests := []struct {
		line string
		want error
	}{
		{"ERROR: File not found or invalid name", ErrServerRejected},
		{"garbage", ErrUnexpectedReply},
	}
	for _, tt := range tests {
		if err := replyError(tt.line, nil); !errors.Is(err, tt.want) {
			t.Errorf("replyError(%q) = %v, want %v", tt.line, err, tt.want)
		}
	}
}
