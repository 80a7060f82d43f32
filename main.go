package main

import (
	"os"

	"gosix/kernel/kfmt"
	"gosix/kernel/kmain"
	"gosix/kernel/mm/swap"
)

// swapFile is the file backing the swap store. It is created in the working
// directory and reused across runs.
const swapFile = "gosix.swap"

// main works as a trampoline for the actual kernel entrypoint (kmain.Kmain):
// it installs stdout as the kernel output sink, opens the file-backed swap
// device and hands control over.
func main() {
	kfmt.SetOutputSink(os.Stdout)

	dev, err := swap.OpenFileDevice(swapFile)
	if err != nil {
		kfmt.Panic(err)
	}
	defer dev.Close()

	if err := kmain.Kmain(dev); err != nil {
		kfmt.Panic(err)
	}
}
