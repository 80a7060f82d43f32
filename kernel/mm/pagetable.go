package mm

// PageTable is the page table view required by the physical memory manager:
// resolving a virtual address to the entry that maps it. Implementations
// return nil when no entry exists for the address.
type PageTable interface {
	Walk(virtAddr uintptr) *Entry
}
