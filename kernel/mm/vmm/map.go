package vmm

import (
	"gosix/kernel"
	"gosix/kernel/mm"
	"gosix/kernel/mm/pmm"
)

var (
	// ErrInvalidMapping is returned when trying to unmap a virtual
	// address that is not yet mapped.
	ErrInvalidMapping = &kernel.Error{Module: "vmm", Message: "virtual address does not point to a mapped page"}

	errMappingExists = &kernel.Error{Module: "vmm", Message: "virtual address is already mapped"}
)

// Map establishes a resident mapping between a virtual page and a physical
// frame, building intermediate table levels as needed, and registers the
// mapping with the physical memory manager so the page joins the LRU ring.
// The frame must have been handed out by the manager that owns this address
// space.
func (as *AddressSpace) Map(page mm.Page, frame mm.Frame, flags mm.EntryFlag) *kernel.Error {
	virtAddr := page.Address()

	node := &as.root
	for level := 0; level < pageLevels-1; level++ {
		entryIndex := tableIndex(virtAddr, level)
		if node.children[entryIndex] == nil {
			node.children[entryIndex] = new(tableNode)
		}

		node = node.children[entryIndex]
	}

	pte := &node.entries[tableIndex(virtAddr, pageLevels-1)]
	if *pte != 0 {
		return errMappingExists
	}

	pte.SetPlacement(mm.Resident(frame))
	pte.SetFlags(flags)

	as.mgr.Transition(pmm.EventAlloc, frame, as, virtAddr)

	return nil
}

// Unmap tears down the mapping for a virtual page. A resident page has its
// frame detached from the LRU ring and returned to the free list; a swapped
// out page has its swap slot discarded instead. Unmapping an address that
// is not mapped returns ErrInvalidMapping.
func (as *AddressSpace) Unmap(page mm.Page) *kernel.Error {
	pte := as.Walk(page.Address())
	if pte == nil || *pte == 0 {
		return ErrInvalidMapping
	}

	placement := pte.Placement()
	*pte = 0

	if !placement.IsResident() {
		as.mgr.DropSlot(placement.SwapSlot())
		return nil
	}

	frame := placement.ResidentFrame()
	as.mgr.Transition(pmm.EventFree, frame, nil, 0)
	as.mgr.FreeFrame(frame)

	return nil
}
