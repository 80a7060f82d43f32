package pmm

import (
	"gosix/kernel"
	"gosix/kernel/kfmt"
	"gosix/kernel/mm"
)

// selectVictimLocked runs the clock scan and returns the descriptor index of
// the first ring member whose accessed bit is clear. A member found with the
// accessed bit set has the bit cleared and is requeued at the ring tail,
// which advances the head to its successor; the scan resumes at that head.
// The victim remains a ring member; eviction detaches it afterwards.
//
// Every requeue clears an accessed bit, so at most one full pass runs before
// some member is found with a clear bit. The caller must hold the manager
// lock for the entire scan. An empty ring or an unresolvable entry is fatal
// and yields nilDesc.
func (m *Manager) selectVictimLocked() int32 {
	if m.lruHead == nilDesc {
		panicFn(errNoVictim)
		return nilDesc
	}

	for {
		descIndex := m.lruHead
		d := &m.descs[descIndex]
		kfmt.Printf("[pmm] evict scan: frame 0x%x, vaddr 0x%x\n",
			(m.start + mm.Frame(descIndex)).Address(), d.vaddr)

		pte := d.owner.Walk(d.vaddr)
		if pte == nil || *pte == 0 {
			panicFn(errEntryMissing)
			return nilDesc
		}

		if !pte.HasFlags(mm.FlagValid) {
			panicFn(errEntryNotResident)
			return nilDesc
		}

		if !pte.HasFlags(mm.FlagAccessed) {
			return descIndex
		}

		pte.ClearFlags(mm.FlagAccessed)
		m.ringRemove(descIndex)
		m.ringInsert(descIndex)
	}
}

// SwapOut evicts exactly one mapped page: the clock victim's contents move
// to a freshly reserved swap slot, its page table entry is rewritten to
// reference the slot with FlagValid cleared, and the vacated frame returns
// to the free list. An empty ring, exhausted swap space, slot I/O failure,
// or inconsistent mapping state is fatal.
func (m *Manager) SwapOut() {
	m.mutex.Acquire()

	if m.store == nil {
		m.mutex.Release()
		panicFn(errNoStore)
		return
	}

	victim := m.selectVictimLocked()
	if victim == nilDesc {
		m.mutex.Release()
		return
	}

	d := &m.descs[victim]
	pte := d.owner.Walk(d.vaddr)
	if pte == nil || *pte == 0 {
		m.mutex.Release()
		panicFn(errEntryMissing)
		return
	}

	if !pte.HasFlags(mm.FlagValid) {
		m.mutex.Release()
		panicFn(errEntryNotResident)
		return
	}

	frame := pte.Placement().ResidentFrame()
	if frame != m.start+mm.Frame(victim) {
		m.mutex.Release()
		panicFn(errDescriptorState)
		return
	}

	// The slot must be reserved before the entry, ring, or free list may
	// change: a full swap store aborts with the page still intact.
	slot, err := m.store.AllocSlot()
	if err != nil {
		m.mutex.Release()
		panicFn(err)
		return
	}

	m.detachLocked(frame)
	m.mutex.Release()

	// The frame stays off the free list until its contents reach the
	// slot, so the copy source cannot be handed out concurrently.
	if err := m.store.WriteSlot(slot, m.frameBytes(frame)); err != nil {
		panicFn(err)
		return
	}

	pte.SetPlacement(mm.Swapped(slot))
	m.FreeFrame(frame)
}

// SwapIn restores the page mapped at vaddr in pt: a fresh frame is
// allocated, the slot recorded in the entry is read back into it and freed,
// the entry is rewritten to reference the frame with FlagValid restored, and
// the page rejoins the LRU ring. It returns ErrOutOfMemory when the free
// list is exhausted; the caller owns any evict-and-retry policy. A missing
// entry, an entry that is not in swapped form, or a slot I/O failure is
// fatal.
func (m *Manager) SwapIn(pt mm.PageTable, vaddr uintptr) *kernel.Error {
	if m.store == nil {
		panicFn(errNoStore)
		return nil
	}

	frame, err := m.AllocFrame()
	if err != nil {
		return err
	}

	m.mutex.Acquire()

	pte := pt.Walk(vaddr)
	if pte == nil || *pte == 0 {
		m.mutex.Release()
		panicFn(errEntryMissing)
		return nil
	}

	if pte.HasFlags(mm.FlagValid) {
		m.mutex.Release()
		panicFn(errEntryNotSwapped)
		return nil
	}

	slot := pte.Placement().SwapSlot()
	if !m.store.SlotOccupied(slot) {
		m.mutex.Release()
		panicFn(errEntryNotSwapped)
		return nil
	}

	m.mutex.Release()

	if err := m.store.ReadSlot(slot, m.frameBytes(frame)); err != nil {
		panicFn(err)
		return nil
	}

	m.store.FreeSlot(slot)

	m.mutex.Acquire()
	pte.SetPlacement(mm.Resident(frame))
	m.attachLocked(frame, pt, vaddr)
	m.mutex.Release()

	return nil
}

// DropSlot discards the swap slot recorded in a swapped-form entry whose
// mapping is torn down before the page is ever swapped back in.
func (m *Manager) DropSlot(slot int) {
	if m.store == nil {
		panicFn(errNoStore)
		return
	}

	m.store.FreeSlot(slot)
}
