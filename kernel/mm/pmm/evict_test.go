package pmm

import (
	"bytes"
	"testing"

	"gosix/kernel/mm"
	"gosix/kernel/mm/swap"
)

func TestSelectVictimIdempotent(t *testing.T) {
	m, _ := newTestManager(t, 4, 2)
	ft := newFakeTable()

	mapTestPage(t, m, ft, 0x1000, mm.FlagRead)
	mapTestPage(t, m, ft, 0x2000, mm.FlagRead)

	first := m.selectVictimLocked()
	for i := 0; i < 3; i++ {
		if got := m.selectVictimLocked(); got != first {
			t.Fatalf("expected repeated selection to return descriptor %d; got %d", first, got)
		}
	}
}

func TestSecondChanceScan(t *testing.T) {
	m, _ := newTestManager(t, 4, 2)
	ft := newFakeTable()

	frameA, pteA := mapTestPage(t, m, ft, 0x1000, mm.FlagRead|mm.FlagAccessed)
	frameB, _ := mapTestPage(t, m, ft, 0x2000, mm.FlagRead)

	victim := m.selectVictimLocked()

	if exp := int32(frameB - m.start); victim != exp {
		t.Fatalf("expected descriptor %d (the unaccessed page) to be selected; got %d", exp, victim)
	}

	if pteA.HasFlags(mm.FlagAccessed) {
		t.Fatal("expected the scan to clear the accessed bit of the first page")
	}

	// The accessed page was requeued at the tail.
	exp := []int32{int32(frameB - m.start), int32(frameA - m.start)}
	got := ringOrder(m)
	for i := range exp {
		if got[i] != exp[i] {
			t.Fatalf("expected ring order %v after the scan; got %v", exp, got)
		}
	}
}

func TestSwapOutReclaimsOneFrame(t *testing.T) {
	m, store := newTestManager(t, 3, 4)
	ft := newFakeTable()

	frameP, pteP := mapTestPage(t, m, ft, 0x4000, mm.FlagRead|mm.FlagWrite)

	if exp, got := 2, m.Stats().FreeFrames; got != exp {
		t.Fatalf("expected %d free frames before the eviction; got %d", exp, got)
	}

	m.SwapOut()

	stats := m.Stats()
	if exp, got := 3, stats.FreeFrames; got != exp {
		t.Fatalf("expected %d free frames after the eviction; got %d", exp, got)
	}

	if got := stats.MappedFrames; got != 0 {
		t.Fatalf("expected no mapped frames after the eviction; got %d", got)
	}

	if exp, got := 1, store.OccupiedSlots(); got != exp {
		t.Fatalf("expected %d occupied swap slot; got %d", exp, got)
	}

	if pteP.HasFlags(mm.FlagValid) {
		t.Fatal("expected the evicted entry to have FlagValid cleared")
	}

	if !pteP.HasFlags(mm.FlagRead | mm.FlagWrite) {
		t.Fatal("expected the evicted entry to preserve its other flags")
	}

	if p := pteP.Placement(); p.IsResident() || !store.SlotOccupied(p.SwapSlot()) {
		t.Fatal("expected the evicted entry to reference an occupied swap slot")
	}

	reused, err := m.AllocFrame()
	if err != nil {
		t.Fatal(err)
	}

	if reused != frameP {
		t.Fatalf("expected the vacated frame %d on top of the free list; got %d", frameP, reused)
	}
}

func TestSwapRoundTripRestoresContents(t *testing.T) {
	m, store := newTestManager(t, 2, 4)
	ft := newFakeTable()

	const vaddr = uintptr(0x7000)

	frame, pte := mapTestPage(t, m, ft, vaddr, mm.FlagRead|mm.FlagWrite|mm.FlagUser)

	content := m.FrameBytes(frame)
	for i := range content {
		content[i] = byte(i % 127)
	}
	snapshot := append([]byte(nil), content...)

	framesBefore := m.Stats().FreeFrames

	m.SwapOut()

	if err := m.SwapIn(ft, vaddr); err != nil {
		t.Fatal(err)
	}

	if framesAfter := m.Stats().FreeFrames; framesAfter != framesBefore {
		t.Fatalf("expected %d free frames after the round trip; got %d", framesBefore, framesAfter)
	}

	if !pte.HasFlags(mm.FlagValid | mm.FlagRead | mm.FlagWrite | mm.FlagUser) {
		t.Fatal("expected the restored entry to be valid with its flags preserved")
	}

	restored := pte.Placement().ResidentFrame()
	if !bytes.Equal(snapshot, m.FrameBytes(restored)) {
		t.Fatal("expected the restored page to hold the original contents")
	}

	if got := store.OccupiedSlots(); got != 0 {
		t.Fatalf("expected the slot to be freed by swap-in; got %d occupied", got)
	}

	if reads, writes := store.Stats(); reads != 1 || writes != 1 {
		t.Fatalf("expected 1 slot read and 1 slot write; got %d and %d", reads, writes)
	}

	if exp, got := 1, m.Stats().MappedFrames; got != exp {
		t.Fatalf("expected the page to rejoin the ring; got %d members", got)
	}
}

func TestSwapOutWithFullStore(t *testing.T) {
	defer func(origPanicFn func(interface{})) { panicFn = origPanicFn }(panicFn)

	var got interface{}
	panicFn = func(e interface{}) { got = e }

	m, store := newTestManager(t, 2, 1)
	ft := newFakeTable()

	if _, err := store.AllocSlot(); err != nil {
		t.Fatal(err)
	}

	_, pte := mapTestPage(t, m, ft, 0x3000, mm.FlagRead)
	entryBefore := *pte
	freeBefore := m.Stats().FreeFrames

	m.SwapOut()

	if got != swap.ErrSwapFull {
		t.Fatalf("expected SwapOut to abort with ErrSwapFull; got %v", got)
	}

	if *pte != entryBefore {
		t.Fatal("expected the entry to be unmodified after the aborted eviction")
	}

	if free := m.Stats().FreeFrames; free != freeBefore {
		t.Fatalf("expected the free frame count to stay at %d; got %d", freeBefore, free)
	}

	if exp, mapped := 1, m.Stats().MappedFrames; mapped != exp {
		t.Fatalf("expected the page to remain mapped; got %d ring members", mapped)
	}
}

func TestSwapOutWithoutVictim(t *testing.T) {
	defer func(origPanicFn func(interface{})) { panicFn = origPanicFn }(panicFn)

	var got interface{}
	panicFn = func(e interface{}) { got = e }

	m, _ := newTestManager(t, 2, 1)

	m.SwapOut()

	if got != errNoVictim {
		t.Fatalf("expected errNoVictim; got %v", got)
	}
}

func TestSwapOutDescriptorMismatch(t *testing.T) {
	defer func(origPanicFn func(interface{})) { panicFn = origPanicFn }(panicFn)

	var got interface{}
	panicFn = func(e interface{}) { got = e }

	m, _ := newTestManager(t, 3, 2)
	ft := newFakeTable()

	frameX, err := m.AllocFrame()
	if err != nil {
		t.Fatal(err)
	}

	frameY, err := m.AllocFrame()
	if err != nil {
		t.Fatal(err)
	}

	// The entry references a different frame than the ring descriptor.
	ft.install(0x1000, frameY, mm.FlagRead)
	m.Attach(frameX, ft, 0x1000)

	m.SwapOut()

	if got != errDescriptorState {
		t.Fatalf("expected errDescriptorState; got %v", got)
	}
}

func TestSwapWithoutStore(t *testing.T) {
	defer func(origPanicFn func(interface{})) { panicFn = origPanicFn }(panicFn)

	var got interface{}
	panicFn = func(e interface{}) { got = e }

	var m Manager
	if err := m.Init(testRangeStart, testRangeStart+2, nil); err != nil {
		t.Fatal(err)
	}

	t.Run("swap-out", func(t *testing.T) {
		got = nil
		m.SwapOut()

		if got != errNoStore {
			t.Fatalf("expected errNoStore; got %v", got)
		}
	})

	t.Run("swap-in", func(t *testing.T) {
		got = nil

		if err := m.SwapIn(newFakeTable(), 0x1000); err != nil {
			t.Fatal(err)
		}

		if got != errNoStore {
			t.Fatalf("expected errNoStore; got %v", got)
		}
	})
}

func TestSwapInErrors(t *testing.T) {
	defer func(origPanicFn func(interface{})) { panicFn = origPanicFn }(panicFn)

	var got interface{}
	panicFn = func(e interface{}) { got = e }

	t.Run("allocator exhausted", func(t *testing.T) {
		got = nil

		m, store := newTestManager(t, 1, 2)
		ft := newFakeTable()

		slot, err := store.AllocSlot()
		if err != nil {
			t.Fatal(err)
		}

		var pte mm.Entry
		pte.SetFlags(mm.FlagRead)
		pte.SetPlacement(mm.Swapped(slot))
		ft.entries[uintptr(0x5000)] = &pte

		if _, err := m.AllocFrame(); err != nil {
			t.Fatal(err)
		}

		if err := m.SwapIn(ft, 0x5000); err != ErrOutOfMemory {
			t.Fatalf("expected to get ErrOutOfMemory; got %v", err)
		}

		if got != nil {
			t.Fatalf("expected no fatal abort on allocator exhaustion; got %v", got)
		}

		if !store.SlotOccupied(slot) {
			t.Fatal("expected the slot to stay occupied after the failed swap-in")
		}
	})

	t.Run("missing entry", func(t *testing.T) {
		got = nil

		m, _ := newTestManager(t, 1, 2)

		if err := m.SwapIn(newFakeTable(), 0x5000); err != nil {
			t.Fatal(err)
		}

		if got != errEntryMissing {
			t.Fatalf("expected errEntryMissing; got %v", got)
		}
	})

	t.Run("entry not swapped", func(t *testing.T) {
		got = nil

		m, _ := newTestManager(t, 2, 2)
		ft := newFakeTable()

		mapTestPage(t, m, ft, 0x5000, mm.FlagRead)

		if err := m.SwapIn(ft, 0x5000); err != nil {
			t.Fatal(err)
		}

		if got != errEntryNotSwapped {
			t.Fatalf("expected errEntryNotSwapped; got %v", got)
		}
	})
}
