// Package pmm implements the physical memory manager: a free-list frame
// allocator over a managed frame range, a page descriptor table whose
// members form the LRU ring of mapped pages, and the clock eviction engine
// that relocates page contents to a swap store when memory runs short.
package pmm

import (
	"gosix/kernel"
	"gosix/kernel/kfmt"
	"gosix/kernel/mm"
	"gosix/kernel/mm/swap"
	"gosix/kernel/sync"
)

var (
	// ErrOutOfMemory is returned by AllocFrame, and propagated by SwapIn,
	// when the free list is exhausted. The manager never evicts on its
	// own to satisfy an allocation; callers own any evict-and-retry
	// policy.
	ErrOutOfMemory = &kernel.Error{Module: "pmm", Message: "out of memory"}

	errInvalidRange     = &kernel.Error{Module: "pmm", Message: "managed frame range is empty or inverted"}
	errFrameOutOfRange  = &kernel.Error{Module: "pmm", Message: "frame outside the managed range"}
	errFreeMappedFrame  = &kernel.Error{Module: "pmm", Message: "attempt to free a frame that is still mapped"}
	errNoStore          = &kernel.Error{Module: "pmm", Message: "no swap store configured"}
	errNoVictim         = &kernel.Error{Module: "pmm", Message: "no mapped pages to evict"}
	errEntryMissing     = &kernel.Error{Module: "pmm", Message: "mapped page has no page table entry"}
	errEntryNotResident = &kernel.Error{Module: "pmm", Message: "entry for a mapped page does not reference a resident frame"}
	errEntryNotSwapped  = &kernel.Error{Module: "pmm", Message: "entry does not reference an occupied swap slot"}
	errDescriptorState  = &kernel.Error{Module: "pmm", Message: "inconsistent page descriptor state"}
	errBadPageEvent     = &kernel.Error{Module: "pmm", Message: "unknown page event selector"}

	// panicFn is invoked on invariant violations; these indicate a bug in
	// the surrounding kernel and are not recoverable.
	panicFn = kfmt.Panic
)

// Frames carry a fill pattern while they sit on the free list and a
// different one right after allocation, so reads of stale or uninitialized
// page contents are detectable by inspection.
const (
	freeFillPattern  = 0x01
	allocFillPattern = 0x05
)

// Manager tracks every physical frame in a managed range. It owns the frame
// free list, the page descriptor table with its LRU ring of mapped pages,
// and the eviction machinery that moves page contents to the swap store.
//
// A single lock protects the free list, the descriptor table, and the ring;
// every read-modify-write sequence on them runs under it, including the
// whole clock scan. Slot I/O never happens while the lock is held.
type Manager struct {
	mutex sync.Spinlock

	// The managed frame range is [start, end). Frame contents live in a
	// page-sized slice of arena per frame.
	start mm.Frame
	end   mm.Frame
	arena []byte

	descs     []pageDesc
	freeHead  int32
	freeCount int
	lruHead   int32
	lruCount  int

	store *swap.Store
}

// Init prepares the manager to hand out the frames in [start, end) and
// free-lists the entire range. The backing contents of the range live in an
// internal arena exposed through FrameBytes. A nil store is allowed for
// managers that never swap.
func (m *Manager) Init(start, end mm.Frame, store *swap.Store) *kernel.Error {
	if !start.Valid() || !end.Valid() || end <= start {
		return errInvalidRange
	}

	frameCount := int(end - start)

	m.start = start
	m.end = end
	m.arena = make([]byte, frameCount*int(mm.PageSize))
	m.descs = make([]pageDesc, frameCount)
	m.freeHead = nilDesc
	m.freeCount = 0
	m.lruHead = nilDesc
	m.lruCount = 0
	m.store = store

	for descIndex := range m.descs {
		d := &m.descs[descIndex]
		d.prev = nilDesc
		d.next = nilDesc
		d.nextFree = nilDesc
	}

	// Free-list the whole range. The last frame pushed is handed out
	// first.
	for frame := start; frame < end; frame++ {
		m.FreeFrame(frame)
	}

	kfmt.Printf("[pmm] managed range: [0x%x - 0x%x), %d frames, %dKb\n",
		start.Address(), end.Address(), frameCount,
		uint64(frameCount)*uint64(mm.PageSize)/uint64(mm.Kb))

	return nil
}

// AllocFrame removes one frame from the free list and returns it filled
// with the allocation pattern. It returns ErrOutOfMemory when the free list
// is empty; allocation never triggers an eviction.
func (m *Manager) AllocFrame() (mm.Frame, *kernel.Error) {
	m.mutex.Acquire()

	if m.freeHead == nilDesc {
		m.mutex.Release()
		kfmt.Printf("[pmm] out of memory\n")
		return mm.InvalidFrame, ErrOutOfMemory
	}

	descIndex := m.freeHead
	m.freeHead = m.descs[descIndex].nextFree
	m.descs[descIndex].nextFree = nilDesc
	m.freeCount--
	m.mutex.Release()

	frame := m.start + mm.Frame(descIndex)
	kernel.Memset(m.frameBytes(frame), allocFillPattern)

	return frame, nil
}

// FreeFrame fills a frame with the free pattern and pushes it back onto the
// free list. Releasing a frame outside the managed range or one still
// registered to a page table is fatal.
func (m *Manager) FreeFrame(frame mm.Frame) {
	descIndex := m.descIndex(frame)
	if descIndex == nilDesc {
		return
	}

	m.mutex.Acquire()
	if m.descs[descIndex].owner != nil {
		m.mutex.Release()
		panicFn(errFreeMappedFrame)
		return
	}
	m.mutex.Release()

	// The caller owns the frame until it reaches the free list, so the
	// fill needs no lock.
	kernel.Memset(m.frameBytes(frame), freeFillPattern)

	m.mutex.Acquire()
	m.descs[descIndex].nextFree = m.freeHead
	m.freeHead = descIndex
	m.freeCount++
	m.mutex.Release()
}

// FrameBytes returns the contents of a managed frame as a page-sized slice.
// The caller must own the frame. Requesting a frame outside the managed
// range is fatal.
func (m *Manager) FrameBytes(frame mm.Frame) []byte {
	if descIndex := m.descIndex(frame); descIndex == nilDesc {
		return nil
	}

	return m.frameBytes(frame)
}

func (m *Manager) frameBytes(frame mm.Frame) []byte {
	off := int(frame-m.start) * int(mm.PageSize)
	return m.arena[off : off+int(mm.PageSize)]
}

// descIndex maps a frame to its descriptor index. Passing a frame outside
// the managed range is a fatal programming error and yields nilDesc.
func (m *Manager) descIndex(frame mm.Frame) int32 {
	if frame < m.start || frame >= m.end {
		panicFn(errFrameOutOfRange)
		return nilDesc
	}

	return int32(frame - m.start)
}

// Stats describes the manager gauges and the swap traffic counters.
type Stats struct {
	// FreeFrames is the number of frames currently on the free list.
	FreeFrames int

	// MappedFrames is the number of frames currently mapped into some
	// page table, i.e. the LRU ring size.
	MappedFrames int

	// SwapReads and SwapWrites count the pages read from and written to
	// the swap store.
	SwapReads  uint64
	SwapWrites uint64
}

// Stats returns a snapshot of the manager gauges and, when a swap store is
// configured, its transfer counters.
func (m *Manager) Stats() Stats {
	m.mutex.Acquire()
	s := Stats{FreeFrames: m.freeCount, MappedFrames: m.lruCount}
	m.mutex.Release()

	if m.store != nil {
		s.SwapReads, s.SwapWrites = m.store.Stats()
	}

	return s
}
