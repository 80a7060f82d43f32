package swap

import (
	"os"

	"gosix/kernel"
	"gosix/kernel/kfmt"
	"gosix/kernel/mm"
)

var (
	errDeviceOpen  = &kernel.Error{Module: "swap", Message: "cannot open swap file"}
	errDeviceRead  = &kernel.Error{Module: "swap", Message: "device read failed"}
	errDeviceWrite = &kernel.Error{Module: "swap", Message: "device write failed"}
)

// Device provides synchronous page-sized I/O against the blocks backing a
// swap store. Implementations transfer exactly one page per call; buf is
// always mm.PageSize bytes long.
type Device interface {
	// ReadSlot copies the contents of the given slot into buf.
	ReadSlot(slot int, buf []byte) *kernel.Error

	// WriteSlot copies buf into the given slot.
	WriteSlot(slot int, buf []byte) *kernel.Error
}

// FileDevice is a swap device backed by a regular file. Slot contents are
// stored at page-aligned offsets so a store survives across runs.
type FileDevice struct {
	file *os.File
}

// OpenFileDevice opens (creating if needed) the swap file at the given path.
func OpenFileDevice(path string) (*FileDevice, *kernel.Error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		kfmt.Printf("[swap] cannot open swap file %s: %s\n", path, err.Error())
		return nil, errDeviceOpen
	}

	return &FileDevice{file: f}, nil
}

// ReadSlot copies one page from the file into buf.
func (dev *FileDevice) ReadSlot(slot int, buf []byte) *kernel.Error {
	if _, err := dev.file.ReadAt(buf, int64(slot)*int64(mm.PageSize)); err != nil {
		kfmt.Printf("[swap] read of slot %d failed: %s\n", slot, err.Error())
		return errDeviceRead
	}

	return nil
}

// WriteSlot copies one page from buf into the file.
func (dev *FileDevice) WriteSlot(slot int, buf []byte) *kernel.Error {
	if _, err := dev.file.WriteAt(buf, int64(slot)*int64(mm.PageSize)); err != nil {
		kfmt.Printf("[swap] write of slot %d failed: %s\n", slot, err.Error())
		return errDeviceWrite
	}

	return nil
}

// Close releases the underlying swap file.
func (dev *FileDevice) Close() error {
	return dev.file.Close()
}

// MemDevice is a swap device backed by an in-memory block array. It backs
// stores that do not need to survive a restart and doubles as the reference
// device in tests.
type MemDevice struct {
	blocks []byte
}

// NewMemDevice returns a memory-backed device with room for the given number
// of slots.
func NewMemDevice(slots int) *MemDevice {
	return &MemDevice{blocks: make([]byte, slots*int(mm.PageSize))}
}

// ReadSlot copies one page from the block array into buf.
func (dev *MemDevice) ReadSlot(slot int, buf []byte) *kernel.Error {
	off := slot * int(mm.PageSize)
	if off < 0 || off+int(mm.PageSize) > len(dev.blocks) {
		return errDeviceRead
	}

	copy(buf, dev.blocks[off:off+int(mm.PageSize)])
	return nil
}

// WriteSlot copies one page from buf into the block array.
func (dev *MemDevice) WriteSlot(slot int, buf []byte) *kernel.Error {
	off := slot * int(mm.PageSize)
	if off < 0 || off+int(mm.PageSize) > len(dev.blocks) {
		return errDeviceWrite
	}

	copy(dev.blocks[off:off+int(mm.PageSize)], buf)
	return nil
}
