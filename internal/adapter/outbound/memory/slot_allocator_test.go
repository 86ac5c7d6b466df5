package memory

import (
	"errors"
	"sync"
	"testing"

	"github.com/Sentinel-Gate/filegate/internal/domain/identity"
)

func TestSlotAllocator_SmallestFreeSlot(t *testing.T) {
	t.Parallel()

	a := NewSlotAllocator(3)

	for _, want := range []identity.Identity{"Client01", "Client02", "Client03"} {
		got, err := a.Allocate()
		if err != nil {
			t.Fatalf("Allocate() error = %v", err)
		}
		if got != want {
			t.Errorf("Allocate() = %q, want %q", got, want)
		}
	}

	if _, err := a.Allocate(); !errors.Is(err, identity.ErrCapacityExceeded) {
		t.Fatalf("Allocate() on full pool error = %v, want ErrCapacityExceeded", err)
	}

	// Free the middle slot, then the first: reuse is lowest-first, not FIFO.
	a.Release("Client02")
	a.Release("Client01")

	got, err := a.Allocate()
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if got != "Client01" {
		t.Errorf("Allocate() after release = %q, want Client01", got)
	}

	got, err = a.Allocate()
	if err != nil {
		t.Fatalf("Allocate() error = %v", err)
	}
	if got != "Client02" {
		t.Errorf("Allocate() after release = %q, want Client02", got)
	}
}

func TestSlotAllocator_ReleaseIsIdempotent(t *testing.T) {
	t.Parallel()

	a := NewSlotAllocator(2)

	// Never allocated, malformed, and out-of-range identities are ignored.
	a.Release("Client01")
	a.Release("bogus")
	a.Release("Client50")
	if a.InUse() != 0 {
		t.Fatalf("InUse() = %d after no-op releases, want 0", a.InUse())
	}

	id, _ := a.Allocate()
	a.Release(id)
	a.Release(id)
	if a.InUse() != 0 {
		t.Fatalf("InUse() = %d after double release, want 0", a.InUse())
	}

	first, _ := a.Allocate()
	second, _ := a.Allocate()
	if first != "Client01" || second != "Client02" {
		t.Errorf("Allocate() = %q, %q, want Client01, Client02", first, second)
	}
	if _, err := a.Allocate(); !errors.Is(err, identity.ErrCapacityExceeded) {
		t.Errorf("Allocate() error = %v, want ErrCapacityExceeded", err)
	}
}

func TestSlotAllocator_Held(t *testing.T) {
	t.Parallel()

	a := NewSlotAllocator(2)
	id, _ := a.Allocate()

	if !a.Held(id) {
		t.Errorf("Held(%q) = false, want true", id)
	}
	a.Release(id)
	if a.Held(id) {
		t.Errorf("Held(%q) = true after release, want false", id)
	}
	if a.Held("nope") {
		t.Error("Held(nope) = true, want false")
	}
}

func TestNewSlotAllocator_ClampsCapacity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   int
		want int
	}{
		{in: 0, want: 1},
		{in: -5, want: 1},
		{in: 3, want: 3},
		{in: 500, want: identity.MaxSlots},
	}

	for _, tt := range tests {
		if got := NewSlotAllocator(tt.in).Capacity(); got != tt.want {
			t.Errorf("NewSlotAllocator(%d).Capacity() = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSlotAllocator_ConcurrentNeverExceedsCapacity(t *testing.T) {
	t.Parallel()

	const capacity = 5
	a := NewSlotAllocator(capacity)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		holding = make(map[identity.Identity]bool)
		maxSeen int
		dupe    bool
	)

	for g := 0; g < 20; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id, err := a.Allocate()
				if err != nil {
					if !errors.Is(err, identity.ErrCapacityExceeded) {
						t.Errorf("Allocate() unexpected error = %v", err)
					}
					continue
				}

				mu.Lock()
				if holding[id] {
					dupe = true
				}
				holding[id] = true
				if len(holding) > maxSeen {
					maxSeen = len(holding)
				}
				mu.Unlock()

				mu.Lock()
				delete(holding, id)
				mu.Unlock()
				a.Release(id)
			}
		}()
	}
	wg.Wait()

	if dupe {
		t.Error("the same identity was handed out twice concurrently")
	}
	if maxSeen > capacity {
		t.Errorf("observed %d simultaneous identities, capacity is %d", maxSeen, capacity)
	}
	if a.InUse() != 0 {
		t.Errorf("InUse() = %d after all releases, want 0", a.InUse())
	}
}
