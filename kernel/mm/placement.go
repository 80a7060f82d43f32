package mm

// Placement describes where the contents of a mapped page currently live:
// either a physical frame or a slot inside the swap store.
type Placement struct {
	resident bool
	frame    Frame
	slot     int
}

// Resident returns a Placement for a page whose contents live in frame.
func Resident(frame Frame) Placement {
	return Placement{resident: true, frame: frame, slot: -1}
}

// Swapped returns a Placement for a page whose contents were written out to
// the given swap slot.
func Swapped(slot int) Placement {
	return Placement{resident: false, frame: InvalidFrame, slot: slot}
}

// IsResident returns true if the page contents live in a physical frame.
func (p Placement) IsResident() bool {
	return p.resident
}

// ResidentFrame returns the frame holding the page contents. It is only
// meaningful for resident placements.
func (p Placement) ResidentFrame() Frame {
	return p.frame
}

// SwapSlot returns the swap slot holding the page contents. It is only
// meaningful for swapped placements.
func (p Placement) SwapSlot() int {
	return p.slot
}
