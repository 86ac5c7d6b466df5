// Package memory provides in-memory implementations of outbound ports.
package memory

import (
	"sync"
	"time"

	"github.com/Sentinel-Gate/filegate/internal/domain/identity"
	"github.com/Sentinel-Gate/filegate/internal/domain/session"
)

// SessionRegistry implements session.Registry with an in-memory map.
// Thread-safe for concurrent access. Records live for the lifetime of the
// process; there is no expiry.
type SessionRegistry struct {
	mu      sync.RWMutex
	records map[identity.Identity]*session.Record
	now     func() time.Time
}

// RegistryOption configures a SessionRegistry.
type RegistryOption func(*SessionRegistry)

// WithClock overrides the time source used for connect/disconnect stamps.
func WithClock(now func() time.Time) RegistryOption {
	return func(r *SessionRegistry) {
		r.now = now
	}
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry(opts ...RegistryOption) *SessionRegistry {
	r := &SessionRegistry{
		records: make(map[identity.Identity]*session.Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordConnect stores a new active record for id, replacing any earlier one.
func (r *SessionRegistry) RecordConnect(id identity.Identity, addr session.Address) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[id] = &session.Record{
		Identity:    id,
		Address:     addr,
		ConnectedAt: now,
	}
}

// RecordDisconnect stamps the disconnect time on the current record for id.
// A record that is already closed keeps its first disconnect time.
func (r *SessionRegistry) RecordDisconnect(id identity.Identity) {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		rec.Close(now)
	}
}

// Get returns a copy of the record for id.
// Returns session.ErrRecordNotFound if no record exists.
func (r *SessionRegistry) Get(id identity.Identity) (session.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return session.Record{}, session.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

// Snapshot returns copies of all records ordered by slot number.
func (r *SessionRegistry) Snapshot() []session.Record {
	r.mu.RLock()
	out := make([]session.Record, 0, len(r.records))
	for _, rec := range r.records {
		out = append(out, rec.Clone())
	}
	r.mu.RUnlock()

	session.SortBySlot(out)
	return out
}

// Size returns the number of records stored.
func (r *SessionRegistry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

// Compile-time interface verification.
var _ session.Registry = (*SessionRegistry)(nil)
