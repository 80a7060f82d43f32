package pmm

import "gosix/kernel/mm"

// nilDesc is the sentinel value for descriptor links that point nowhere.
const nilDesc = int32(-1)

// pageDesc records the mapping state of one managed frame: the page table
// and virtual address that own it while it is mapped, its LRU ring links,
// and its free-list link. Links are descriptor indices rather than
// pointers, so a corrupted link can never dangle outside the descriptor
// table.
//
// A descriptor has a non-nil owner if and only if it is a member of the LRU
// ring; otherwise it is idle and its ring links are nilDesc.
type pageDesc struct {
	owner mm.PageTable
	vaddr uintptr

	prev, next int32
	nextFree   int32
}

// ringInsert splices the descriptor in immediately before the ring head,
// which makes it the tail of the scan order. An empty ring makes the
// descriptor a singleton pointing at itself.
func (m *Manager) ringInsert(descIndex int32) {
	d := &m.descs[descIndex]

	if m.lruHead == nilDesc {
		d.prev = descIndex
		d.next = descIndex
		m.lruHead = descIndex
		m.lruCount++
		return
	}

	head := &m.descs[m.lruHead]
	tail := head.prev

	d.prev = tail
	d.next = m.lruHead
	m.descs[tail].next = descIndex
	head.prev = descIndex
	m.lruCount++
}

// ringRemove splices the descriptor out of the ring, advancing the head to
// the descriptor's successor when the head itself is removed. The
// descriptor's own links are cleared.
func (m *Manager) ringRemove(descIndex int32) {
	d := &m.descs[descIndex]

	if d.next == descIndex {
		m.lruHead = nilDesc
	} else {
		m.descs[d.prev].next = d.next
		m.descs[d.next].prev = d.prev

		if m.lruHead == descIndex {
			m.lruHead = d.next
		}
	}

	d.prev = nilDesc
	d.next = nilDesc
	m.lruCount--
}

// Attach registers pt and vaddr as the owner of frame and inserts the
// frame's descriptor at the tail of the LRU ring. It is used both when a
// freshly allocated frame is first mapped and when a page is restored by
// swap-in. Attaching a frame that is already registered is fatal.
func (m *Manager) Attach(frame mm.Frame, pt mm.PageTable, vaddr uintptr) {
	m.mutex.Acquire()
	m.attachLocked(frame, pt, vaddr)
	m.mutex.Release()
}

// Detach clears the owner of frame and removes its descriptor from the LRU
// ring. It is used both when a mapping is explicitly torn down and when a
// page is evicted by swap-out. Detaching an idle frame is fatal.
func (m *Manager) Detach(frame mm.Frame) {
	m.mutex.Acquire()
	m.detachLocked(frame)
	m.mutex.Release()
}

func (m *Manager) attachLocked(frame mm.Frame, pt mm.PageTable, vaddr uintptr) {
	descIndex := m.descIndex(frame)
	if descIndex == nilDesc {
		return
	}

	d := &m.descs[descIndex]
	if d.owner != nil {
		panicFn(errDescriptorState)
		return
	}

	d.owner = pt
	d.vaddr = vaddr
	m.ringInsert(descIndex)
}

func (m *Manager) detachLocked(frame mm.Frame) {
	descIndex := m.descIndex(frame)
	if descIndex == nilDesc {
		return
	}

	d := &m.descs[descIndex]
	if d.owner == nil {
		panicFn(errDescriptorState)
		return
	}

	d.owner = nil
	d.vaddr = 0
	m.ringRemove(descIndex)
}

// PageEvent identifies a page lifecycle event routed through Transition.
type PageEvent uint8

const (
	// EventAlloc signals that an allocated frame was mapped at a virtual
	// address.
	EventAlloc PageEvent = iota

	// EventFree signals that a mapping was torn down before its frame is
	// released.
	EventFree

	// EventSwapIn signals that a page was restored from the swap store.
	EventSwapIn

	// EventSwapOut signals that a page was evicted to the swap store.
	EventSwapOut
)

// Transition routes a page lifecycle event to the descriptor bookkeeping:
// EventAlloc and EventSwapIn attach the frame while EventFree and
// EventSwapOut detach it. Any other selector is a fatal programming error.
func (m *Manager) Transition(ev PageEvent, frame mm.Frame, pt mm.PageTable, vaddr uintptr) {
	m.mutex.Acquire()

	switch ev {
	case EventAlloc, EventSwapIn:
		m.attachLocked(frame, pt, vaddr)
	case EventFree, EventSwapOut:
		m.detachLocked(frame)
	default:
		panicFn(errBadPageEvent)
	}

	m.mutex.Release()
}
