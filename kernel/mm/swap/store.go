// Package swap manages the slots of a swap store. A bitmap tracks which
// slots currently hold the contents of an evicted page while a Device
// performs the page-sized transfers against the backing storage.
package swap

import (
	"math/bits"
	"sync/atomic"

	"gosix/kernel"
	"gosix/kernel/kfmt"
	"gosix/kernel/mm"
	"gosix/kernel/sync"
)

var (
	// ErrSwapFull is returned by AllocSlot when every slot in the store
	// is occupied.
	ErrSwapFull = &kernel.Error{Module: "swap", Message: "out of swap space"}

	errStoreTooSmall   = &kernel.Error{Module: "swap", Message: "store must fit at least one page"}
	errSlotOutOfRange  = &kernel.Error{Module: "swap", Message: "slot index out of range"}
	errSlotNotOccupied = &kernel.Error{Module: "swap", Message: "attempt to free a slot that is not occupied"}

	// panicFn is invoked when corrupted slot bookkeeping is detected.
	panicFn = kfmt.Panic
)

// Store tracks the allocation state of a swap store's slots and moves page
// contents to and from the backing device.
//
// The bitmap is guarded by the store's own lock so that concurrent evictions
// can never reserve the same slot. Slot I/O deliberately runs outside that
// lock: between AllocSlot and FreeSlot a slot has exactly one owner, so
// transfers need no further serialization.
type Store struct {
	mutex sync.Spinlock

	dev      Device
	slots    int
	occupied int
	bitmap   []uint64

	reads  uint64
	writes uint64
}

// Init prepares the store to manage a device of the given size. The slot
// count is the number of complete pages that fit in size; any trailing space
// smaller than a page is ignored.
func (s *Store) Init(dev Device, size mm.Size) *kernel.Error {
	slots := size.Pages()
	if slots == 0 {
		return errStoreTooSmall
	}

	s.dev = dev
	s.slots = int(slots)
	s.occupied = 0
	s.bitmap = make([]uint64, (slots+63)/64)
	s.reads = 0
	s.writes = 0

	kfmt.Printf("[swap] store: %d slots, %dKb\n", s.slots, uint64(size)/uint64(mm.Kb))
	return nil
}

// AllocSlot reserves the first free slot in the store and returns its index.
// It returns ErrSwapFull when every slot is occupied.
func (s *Store) AllocSlot() (int, *kernel.Error) {
	s.mutex.Acquire()

	for blockIndex, block := range s.bitmap {
		if ^block == 0 {
			continue
		}

		slot := blockIndex*64 + bits.TrailingZeros64(^block)
		if slot >= s.slots {
			break
		}

		s.bitmap[blockIndex] = block | 1<<uint(slot%64)
		s.occupied++
		s.mutex.Release()
		return slot, nil
	}

	s.mutex.Release()
	return -1, ErrSwapFull
}

// FreeSlot releases an occupied slot. Freeing a slot that is out of range or
// not currently occupied indicates corrupted swap bookkeeping and is fatal.
func (s *Store) FreeSlot(slot int) {
	s.mutex.Acquire()

	if slot < 0 || slot >= s.slots {
		s.mutex.Release()
		panicFn(errSlotOutOfRange)
		return
	}

	if s.bitmap[slot/64]&(1<<uint(slot%64)) == 0 {
		s.mutex.Release()
		panicFn(errSlotNotOccupied)
		return
	}

	s.bitmap[slot/64] &^= 1 << uint(slot%64)
	s.occupied--
	s.mutex.Release()
}

// ReadSlot copies the contents of the given slot into dst and counts the
// transfer. The caller must own the slot.
func (s *Store) ReadSlot(slot int, dst []byte) *kernel.Error {
	if err := s.dev.ReadSlot(slot, dst); err != nil {
		return err
	}

	atomic.AddUint64(&s.reads, 1)
	return nil
}

// WriteSlot copies src into the given slot and counts the transfer. The
// caller must own the slot.
func (s *Store) WriteSlot(slot int, src []byte) *kernel.Error {
	if err := s.dev.WriteSlot(slot, src); err != nil {
		return err
	}

	atomic.AddUint64(&s.writes, 1)
	return nil
}

// Stats returns the number of pages read from and written to the store since
// the last Init.
func (s *Store) Stats() (reads, writes uint64) {
	return atomic.LoadUint64(&s.reads), atomic.LoadUint64(&s.writes)
}

// Slots returns the total number of slots managed by the store.
func (s *Store) Slots() int {
	return s.slots
}

// OccupiedSlots returns the number of slots currently holding page contents.
func (s *Store) OccupiedSlots() int {
	s.mutex.Acquire()
	occupied := s.occupied
	s.mutex.Release()

	return occupied
}

// SlotOccupied returns true if the given slot currently holds page contents.
func (s *Store) SlotOccupied(slot int) bool {
	if slot < 0 || slot >= s.slots {
		return false
	}

	s.mutex.Acquire()
	occupied := s.bitmap[slot/64]&(1<<uint(slot%64)) != 0
	s.mutex.Release()

	return occupied
}
