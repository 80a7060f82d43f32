// Package vmm provides the address-space collaborator of the physical
// memory manager: a multi-level page table with walk, map and unmap
// primitives plus the page fault entry point that restores swapped out
// pages and owns the evict-and-retry loop.
package vmm

import (
	"gosix/kernel/mm"
	"gosix/kernel/mm/pmm"
)

const (
	// pageLevels is the number of levels in the translation tree.
	pageLevels = 3

	// tableEntries is the number of entries in a table at every level.
	tableEntries = 512
)

var (
	// pageLevelBits defines the number of virtual address bits that
	// correspond to each page level. Each level uses 9 bits which
	// amounts to 512 entries per table.
	pageLevelBits = [pageLevels]uint8{9, 9, 9}

	// pageLevelShifts defines the shift required to extract each page
	// table index from a virtual address.
	pageLevelShifts = [pageLevels]uint8{30, 21, 12}
)

// tableNode is one level of the translation tree. Interior levels link to
// their child tables; the last level stores the page table entries.
type tableNode struct {
	children [tableEntries]*tableNode
	entries  [tableEntries]mm.Entry
}

// AddressSpace is a three-level translation tree of page table entries.
// Intermediate tables are built lazily by Map; Walk never allocates. The
// zero value is an empty address space; Init must be called before mappings
// are established.
type AddressSpace struct {
	root tableNode
	mgr  *pmm.Manager
}

// Init attaches the address space to the physical memory manager that owns
// the frames mapped into it.
func (as *AddressSpace) Init(mgr *pmm.Manager) {
	as.mgr = mgr
}

// Walk resolves the page table entry that maps virtAddr without allocating
// missing table levels. It returns nil when an intermediate table is
// absent; a never-mapped address inside an existing table resolves to a
// zero entry.
func (as *AddressSpace) Walk(virtAddr uintptr) *mm.Entry {
	node := &as.root
	for level := 0; level < pageLevels-1; level++ {
		entryIndex := tableIndex(virtAddr, level)
		if node.children[entryIndex] == nil {
			return nil
		}

		node = node.children[entryIndex]
	}

	return &node.entries[tableIndex(virtAddr, pageLevels-1)]
}

// tableIndex extracts the index into the page table at the given level from
// a virtual address.
func tableIndex(virtAddr uintptr, level int) uintptr {
	return (virtAddr >> pageLevelShifts[level]) & ((1 << pageLevelBits[level]) - 1)
}
