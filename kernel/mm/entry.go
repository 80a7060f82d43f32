package mm

// EntryFlag describes a flag that can be applied to a page table entry.
type EntryFlag uint64

const (
	// FlagValid is set when the entry maps a page that is resident in
	// physical memory. Entries for swapped out pages keep their other
	// flags but have FlagValid cleared.
	FlagValid EntryFlag = 1 << iota

	// FlagRead is set if the page can be read from.
	FlagRead

	// FlagWrite is set if the page can be written to.
	FlagWrite

	// FlagExec is set if the page contains executable code.
	FlagExec

	// FlagUser is set if user-mode code can access this page. If not set
	// only kernel code can access this page.
	FlagUser

	// FlagGlobal is set for mappings that exist in all address spaces.
	FlagGlobal

	// FlagAccessed is set by the MMU when this page is accessed.
	FlagAccessed

	// FlagDirty is set by the MMU when this page is modified.
	FlagDirty
)

const (
	// entryFrameShift is the offset of the physical page number field
	// inside a page table entry. Bits 0-9 are reserved for entry flags.
	entryFrameShift = 10

	// entryFrameMask isolates the physical page number field which spans
	// bits 10-53 of a page table entry.
	entryFrameMask = uint64(0x003ffffffffffc00)
)

// Entry describes a page table entry. Entries encode a set of flags in their
// ten low bits and a page number field in bits 10-53. For entries with
// FlagValid set the field contains the physical frame backing the page; for
// entries of swapped out pages it contains the swap slot holding the page
// contents.
type Entry uint64

// HasFlags returns true if this entry has all the input flags set.
func (pte Entry) HasFlags(flags EntryFlag) bool {
	return (uint64(pte) & uint64(flags)) == uint64(flags)
}

// HasAnyFlag returns true if this entry has at least one of the input flags set.
func (pte Entry) HasAnyFlag(flags EntryFlag) bool {
	return (uint64(pte) & uint64(flags)) != 0
}

// SetFlags sets the input list of flags to the page table entry.
func (pte *Entry) SetFlags(flags EntryFlag) {
	*pte = Entry(uint64(*pte) | uint64(flags))
}

// ClearFlags unsets the input list of flags from the page table entry.
func (pte *Entry) ClearFlags(flags EntryFlag) {
	*pte = Entry(uint64(*pte) &^ uint64(flags))
}

// Frame returns the physical page frame that this page table entry points to.
func (pte Entry) Frame() Frame {
	return Frame((uint64(pte) & entryFrameMask) >> entryFrameShift)
}

// SetFrame updates the page table entry to point to the given physical frame.
func (pte *Entry) SetFrame(frame Frame) {
	pte.setPageNumber(uint64(frame))
}

// Placement returns the location of the page contents that this entry maps:
// the resident frame when FlagValid is set, the swap slot otherwise. The
// caller must ensure the entry maps a page at all; a zero entry carries no
// placement.
func (pte Entry) Placement() Placement {
	if pte.HasFlags(FlagValid) {
		return Resident(pte.Frame())
	}

	return Swapped(int((uint64(pte) & entryFrameMask) >> entryFrameShift))
}

// SetPlacement rewrites the page number field and FlagValid to point this
// entry at the given placement. All other entry flags are preserved.
func (pte *Entry) SetPlacement(p Placement) {
	if p.IsResident() {
		pte.setPageNumber(uint64(p.ResidentFrame()))
		pte.SetFlags(FlagValid)
		return
	}

	pte.setPageNumber(uint64(p.SwapSlot()))
	pte.ClearFlags(FlagValid)
}

func (pte *Entry) setPageNumber(num uint64) {
	*pte = Entry((uint64(*pte) &^ entryFrameMask) | (num<<entryFrameShift)&entryFrameMask)
}
