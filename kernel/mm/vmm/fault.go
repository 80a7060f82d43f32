package vmm

import (
	"gosix/kernel"
	"gosix/kernel/kfmt"
	"gosix/kernel/mm"
	"gosix/kernel/mm/pmm"
)

var (
	// ErrUnrecoverableFault is returned for page faults that the swap
	// machinery cannot service, such as faults on unmapped addresses.
	ErrUnrecoverableFault = &kernel.Error{Module: "vmm", Message: "page fault cannot be recovered"}
)

// HandleFault services a page fault at faultAddr inside the given address
// space. A fault on a swapped out page triggers a swap-in; when physical
// memory is exhausted the handler evicts one page and retries, so the
// evict-and-retry policy lives here and not inside the allocator. A fault
// on an unmapped address is not recoverable. A fault on a page that is
// already resident is treated as spurious and succeeds without side
// effects.
func HandleFault(mgr *pmm.Manager, as *AddressSpace, faultAddr uintptr) *kernel.Error {
	pageAddr := mm.PageFromAddress(faultAddr).Address()

	pte := as.Walk(pageAddr)
	if pte == nil || *pte == 0 {
		kfmt.Printf("\nPage fault while accessing address: 0x%x\nReason: address is not mapped\n", faultAddr)
		return ErrUnrecoverableFault
	}

	if pte.HasFlags(mm.FlagValid) {
		return nil
	}

	for {
		err := mgr.SwapIn(as, pageAddr)
		if err == nil {
			return nil
		}

		if err != pmm.ErrOutOfMemory {
			return err
		}

		// Make room by evicting one page, then retry the swap-in. An
		// eviction that cannot make progress is fatal inside SwapOut,
		// so the loop always terminates.
		mgr.SwapOut()
	}
}
