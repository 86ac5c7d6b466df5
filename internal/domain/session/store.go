package session

import (
	"errors"

	"github.com/Sentinel-Gate/filegate/internal/domain/identity"
)

// Registry records session metadata per identity.
// Records are never deleted; a reused identity overwrites its previous record.
// Implementations must be safe for concurrent use.
type Registry interface {
	// RecordConnect stores a new active record for id, replacing any earlier one.
	RecordConnect(id identity.Identity, addr Address)

	// RecordDisconnect sets the disconnect time of the current record for id.
	// It does nothing if the time is already set or no record exists.
	RecordDisconnect(id identity.Identity)

	// Snapshot returns a copy of all records ordered by slot number.
	Snapshot() []Record
}

// ErrRecordNotFound is returned when no record exists for an identity.
var ErrRecordNotFound = errors.New("session record not found")
