// Package identity defines the slot-bounded client identities handed out
// to connections.
package identity

import (
	"errors"
	"fmt"
	"strings"
)

// Prefix is the fixed leading part of every identity string.
const Prefix = "Client"

// MaxSlots is the largest slot number an identity can encode.
// Identities are zero-padded to two digits, so slot 100 and above would
// break numeric ordering of the string form.
const MaxSlots = 99

// ErrCapacityExceeded is returned by an Allocator when every slot is held.
var ErrCapacityExceeded = errors.New("identity: capacity exceeded")

// ErrInvalidIdentity is returned by Parse for strings that do not encode a slot.
var ErrInvalidIdentity = errors.New("identity: invalid identity")

// Identity is the human-readable handle assigned to one connection slot,
// e.g. "Client01".
type Identity string

// FromSlot formats the identity for a slot number.
func FromSlot(slot int) Identity {
	return Identity(fmt.Sprintf("%s%02d", Prefix, slot))
}

// Slot returns the slot number embedded in the identity.
func (id Identity) Slot() (int, error) {
	return Parse(string(id))
}

// String implements fmt.Stringer.
func (id Identity) String() string {
	return string(id)
}

// Parse extracts the slot number from an identity string. Only the exact
// form FromSlot produces is accepted: the prefix and two ASCII digits.
func Parse(s string) (int, error) {
	digits, ok := strings.CutPrefix(s, Prefix)
	if !ok || len(digits) != 2 || !isDigit(digits[0]) || !isDigit(digits[1]) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
	}
	n := int(digits[0]-'0')*10 + int(digits[1]-'0')
	if n < 1 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidIdentity, s)
	}
	return n, nil
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}

// Allocator hands out and reclaims identities from a bounded slot pool.
// Implementations must be safe for concurrent use.
type Allocator interface {
	// Allocate reserves the smallest free slot.
	// Returns ErrCapacityExceeded when the pool is exhausted.
	Allocate() (Identity, error)

	// Release frees the slot behind id. Releasing an identity that is not
	// held is a no-op.
	Release(id Identity)

	// InUse returns the number of currently held slots.
	InUse() int

	// Capacity returns the size of the slot pool.
	Capacity() int
}
