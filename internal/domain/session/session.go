package session

import (
	"sort"
	"time"
)

// Active reports whether the session has not been closed yet.
func (r *Record) Active() bool {
	return r.DisconnectedAt == nil
}

// Close sets the disconnect time if it is not already set.
// Returns false when the record was already closed.
func (r *Record) Close(at time.Time) bool {
	if r.DisconnectedAt != nil {
		return false
	}
	t := at
	r.DisconnectedAt = &t
	return true
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() Record {
	c := *r
	if r.DisconnectedAt != nil {
		t := *r.DisconnectedAt
		c.DisconnectedAt = &t
	}
	return c
}

// SortBySlot orders records by the slot number embedded in their identity.
// Records whose identity does not parse sort last, by string.
func SortBySlot(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		si, errI := records[i].Identity.Slot()
		sj, errJ := records[j].Identity.Slot()
		switch {
		case errI == nil && errJ == nil:
			return si < sj
		case errI == nil:
			return true
		case errJ == nil:
			return false
		default:
			return records[i].Identity < records[j].Identity
		}
	})
}
