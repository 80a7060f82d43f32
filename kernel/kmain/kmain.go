// Package kmain wires the memory management subsystems together: it brings
// up a swap store, a physical memory manager and an address space, then runs
// a demand-paging workload that exercises the whole stack.
package kmain

import (
	"gosix/kernel"
	"gosix/kernel/kfmt"
	"gosix/kernel/mm"
	"gosix/kernel/mm/pmm"
	"gosix/kernel/mm/swap"
	"gosix/kernel/mm/vmm"
)

const (
	// Geometry of the managed range and the swap area. The workload maps
	// twice as many pages as there are physical frames, so half of the
	// pages are swapped out at any point in time.
	frameRangeStart = mm.Frame(0x100)
	frameCount      = 8
	workloadPages   = 2 * frameCount
	swapSize        = mm.Size(workloadPages) * mm.Size(mm.PageSize)

	workloadBase = uintptr(0x400000)
)

var errContentLost = &kernel.Error{Module: "kmain", Message: "page contents lost across swap"}

// Kmain is the kernel entrypoint. It initializes the memory subsystems on
// top of the supplied swap device, maps workloadPages pages into a fresh
// address space under memory pressure and then touches each one, faulting
// the swapped ones back in and verifying their contents.
//
// Kmain returns a non-nil error when a subsystem fails to initialize or the
// workload observes corrupted page contents.
func Kmain(dev swap.Device) *kernel.Error {
	var (
		store swap.Store
		mgr   pmm.Manager
		as    vmm.AddressSpace
	)

	if err := store.Init(dev, swapSize); err != nil {
		return err
	}

	if err := mgr.Init(frameRangeStart, frameRangeStart+frameCount, &store); err != nil {
		return err
	}

	as.Init(&mgr)

	// Map more pages than there are frames, evicting on demand the way a
	// fault-driven allocation would.
	for i := 0; i < workloadPages; i++ {
		frame, err := allocWithReclaim(&mgr)
		if err != nil {
			return err
		}

		vaddr := workloadBase + uintptr(i)*mm.PageSize
		if err := as.Map(mm.PageFromAddress(vaddr), frame, mm.FlagRead|mm.FlagWrite); err != nil {
			return err
		}

		fillPage(mgr.FrameBytes(frame), byte(i))
	}

	// Touch every page in mapping order. Pages that were evicted along
	// the way fault back in through the regular fault path.
	var faults int
	for i := 0; i < workloadPages; i++ {
		vaddr := workloadBase + uintptr(i)*mm.PageSize

		pte := as.Walk(vaddr)
		if !pte.HasFlags(mm.FlagValid) {
			if err := vmm.HandleFault(&mgr, &as, vaddr); err != nil {
				return err
			}
			faults++
		}

		if !checkPage(mgr.FrameBytes(pte.Placement().ResidentFrame()), byte(i)) {
			return errContentLost
		}
	}

	stats := mgr.Stats()
	kfmt.Printf("[kmain] workload complete: %d pages touched, %d faults served\n", workloadPages, faults)
	kfmt.Printf("[kmain] frames free/mapped: %d/%d, swap reads/writes: %d/%d\n",
		stats.FreeFrames, stats.MappedFrames, stats.SwapReads, stats.SwapWrites)

	return nil
}

// allocWithReclaim allocates a frame, evicting one page and retrying when
// the free list is exhausted.
func allocWithReclaim(mgr *pmm.Manager) (mm.Frame, *kernel.Error) {
	for {
		frame, err := mgr.AllocFrame()
		if err == nil {
			return frame, nil
		}

		if err != pmm.ErrOutOfMemory {
			return mm.InvalidFrame, err
		}

		mgr.SwapOut()
	}
}

func fillPage(buf []byte, seed byte) {
	for i := range buf {
		buf[i] = seed ^ byte(i%251)
	}
}

func checkPage(buf []byte, seed byte) bool {
	for i := range buf {
		if buf[i] != seed^byte(i%251) {
			return false
		}
	}

	return true
}
