package wire

import (
	"errors"
	"testing"
)

func TestParseFileHeader(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		line     string
		wantName string
		wantSize int64
		wantErr  bool
	}{
		{name: "simple", line: "FILE notes.txt 42", wantName: "notes.txt", wantSize: 42},
		{name: "zero", line: "FILE empty 0", wantName: "empty", wantSize: 0},
		{name: "spaces in name", line: "FILE my notes.txt 7", wantName: "my notes.txt", wantSize: 7},
		{name: "missing size", line: "FILE notes.txt", wantErr: true},
		{name: "non numeric size", line: "FILE notes.txt big", wantErr: true},
		{name: "wrong tag", line: "STATUS 12", wantErr: true},
		{name: "error line", line: "ERROR: File not found or invalid name", wantErr: true},
		{name: "trailing space", line: "FILE notes.txt ", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			name, size, err := ParseFileHeader(tt.line)
			if tt.wantErr {
				var mh *MalformedHeaderError
				if !errors.As(err, &mh) {
					t.Fatalf("ParseFileHeader(%q) error = %v, want *MalformedHeaderError", tt.line, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseFileHeader(%q) error = %v", tt.line, err)
			}
			if name != tt.wantName || size != tt.wantSize {
				t.Errorf("ParseFileHeader(%q) = %q, %d; want %q, %d", tt.line, name, size, tt.wantName, tt.wantSize)
			}
		})
	}
}

func TestFileHeader(t *testing.T) {
	t.Parallel()

	if got := FileHeader("a.txt", 12); got != "FILE a.txt 12" {
		t.Errorf("FileHeader() = %q", got)
	}
}

func TestParseCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line     string
		wantVerb string
		wantArg  string
	}{
		{"exit", "exit", ""},
		{"  EXIT  ", "exit", ""},
		{"Status", "status", ""},
		{"print notes.txt", "print", "notes.txt"},
		{"PRINT   notes.txt  ", "print", "notes.txt"},
		{"print\tnotes.txt", "print", "notes.txt"},
		{"hello there world", "hello", "there world"},
		{"", "", ""},
	}

	for _, tt := range tests {
		verb, arg := ParseCommand(tt.line)
		if verb != tt.wantVerb || arg != tt.wantArg {
			t.Errorf("ParseCommand(%q) = %q, %q; want %q, %q", tt.line, verb, arg, tt.wantVerb, tt.wantArg)
		}
	}
}

func TestMessages(t *testing.T) {
	t.Parallel()

	if got := Greeting("Client01"); got != "NAME? Client01" {
		t.Errorf("Greeting() = %q", got)
	}
	if got := HandshakeReply("Client01"); got != "NAME Client01" {
		t.Errorf("HandshakeReply() = %q", got)
	}
	if got := BusyNotice(3); got != "BUSY: Server is full (3 clients max reached)" {
		t.Errorf("BusyNotice() = %q", got)
	}
	if got := Ack("hello"); got != "hello ACK" {
		t.Errorf("Ack() = %q", got)
	}
}
