package wire

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Protocol tags and fixed messages.
const (
	TagStatus = "STATUS"
	TagFile   = "FILE"

	GreetingPrefix  = "NAME? "
	HandshakePrefix = "NAME "
	BusyPrefix      = "BUSY"
	ErrorPrefix     = "ERROR: "

	ExitAck   = "EXIT"
	AckSuffix = " ACK"
)

// Client commands.
const (
	CmdExit   = "exit"
	CmdStatus = "status"
	CmdList   = "list"
	CmdPrint  = "print"
)

// Greeting is the server's proposal of an identity.
func Greeting(id string) string {
	return GreetingPrefix + id
}

// HandshakeReply is the client's acceptance of a proposed identity.
func HandshakeReply(id string) string {
	return HandshakePrefix + id
}

// BusyNotice is sent instead of a greeting when every slot is taken.
func BusyNotice(capacity int) string {
	return fmt.Sprintf("%s: Server is full (%d clients max reached)", BusyPrefix, capacity)
}

// Ack echoes a message back with the acknowledgment suffix.
func Ack(msg string) string {
	return msg + AckSuffix
}

// FileHeader formats the header line preceding a file transfer.
func FileHeader(name string, size int64) string {
	return TagFile + " " + name + " " + strconv.FormatInt(size, 10)
}

// ParseHeader parses a "<tag> <len>" header line.
func ParseHeader(line, tag string) (int64, error) {
	parts := strings.Fields(line)
	if len(parts) != 2 || parts[0] != tag {
		return 0, &MalformedHeaderError{Line: line, Reason: "want " + tag + " <length>"}
	}
	return parseSize(line, parts[1])
}

// ParseFileHeader parses a "FILE <name> <size>" header line.
// The name is everything between the tag and the final field, so names
// containing spaces survive.
func ParseFileHeader(line string) (string, int64, error) {
	rest, ok := strings.CutPrefix(line, TagFile+" ")
	if !ok {
		return "", 0, &MalformedHeaderError{Line: line, Reason: "want FILE <name> <size>"}
	}
	i := strings.LastIndexByte(rest, ' ')
	if i <= 0 {
		return "", 0, &MalformedHeaderError{Line: line, Reason: "want FILE <name> <size>"}
	}
	size, err := parseSize(line, rest[i+1:])
	if err != nil {
		return "", 0, err
	}
	return rest[:i], size, nil
}

func parseSize(line, field string) (int64, error) {
	if field == "" {
		return 0, &MalformedHeaderError{Line: line, Reason: "missing length"}
	}
	for _, r := range field {
		if r < '0' || r > '9' {
			return 0, &MalformedHeaderError{Line: line, Reason: "length is not a decimal number"}
		}
	}
	n, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, &MalformedHeaderError{Line: line, Reason: "length out of range"}
	}
	return n, nil
}

// ParseCommand splits a client line into a lower-cased verb and its argument.
// Surrounding whitespace is ignored.
func ParseCommand(line string) (verb, arg string) {
	trimmed := strings.TrimSpace(line)
	i := strings.IndexFunc(trimmed, unicode.IsSpace)
	if i < 0 {
		return strings.ToLower(trimmed), ""
	}
	return strings.ToLower(trimmed[:i]), strings.TrimSpace(trimmed[i:])
}
