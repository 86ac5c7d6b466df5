package memory

import (
	"sync"

	"github.com/bits-and-blooms/bitset"

	"github.com/Sentinel-Gate/filegate/internal/domain/identity"
)

// SlotAllocator implements identity.Allocator over a bitset of slot numbers.
// Bit i is set while slot i is held; bit 0 is never used.
// Thread-safe for concurrent access.
type SlotAllocator struct {
	mu       sync.Mutex
	held     *bitset.BitSet
	capacity int
}

// NewSlotAllocator creates an allocator with slots 1..capacity.
// Capacity is clamped to [1, identity.MaxSlots].
func NewSlotAllocator(capacity int) *SlotAllocator {
	if capacity < 1 {
		capacity = 1
	}
	if capacity > identity.MaxSlots {
		capacity = identity.MaxSlots
	}
	return &SlotAllocator{
		held:     bitset.New(uint(capacity) + 1),
		capacity: capacity,
	}
}

// Allocate reserves the smallest free slot and returns its identity.
func (a *SlotAllocator) Allocate() (identity.Identity, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if int(a.held.Count()) >= a.capacity {
		return "", identity.ErrCapacityExceeded
	}

	slot, ok := a.held.NextClear(1)
	if !ok || slot > uint(a.capacity) {
		return "", identity.ErrCapacityExceeded
	}
	a.held.Set(slot)
	return identity.FromSlot(int(slot)), nil
}

// Release frees the slot behind id. Unknown or unheld identities are ignored.
func (a *SlotAllocator) Release(id identity.Identity) {
	slot, err := id.Slot()
	if err != nil || slot > a.capacity {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.held.Clear(uint(slot))
}

// Held reports whether the slot behind id is currently allocated.
func (a *SlotAllocator) Held(id identity.Identity) bool {
	slot, err := id.Slot()
	if err != nil || slot > a.capacity {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	return a.held.Test(uint(slot))
}

// InUse returns the number of held slots.
func (a *SlotAllocator) InUse() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.held.Count())
}

// Capacity returns the number of slots in the pool.
func (a *SlotAllocator) Capacity() int {
	return a.capacity
}

// Compile-time interface verification.
var _ identity.Allocator = (*SlotAllocator)(nil)
