//go:build linux

package uio

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Map is a memory-mapped register window.
type Map struct {
	fd   int
	data []byte
}

var _ Registers = (*Map)(nil)

// Open maps size bytes of device starting at offset. For /dev/uioN the
// offset selects the map index times the page size; for /dev/mem it is the
// physical base address.
func Open(device string, offset int64, size int) (*Map, error) {
	if size <= 0 {
		return nil, fmt.Errorf("uio: invalid window size %d", size)
	}

	fd, err := unix.Open(device, unix.O_RDWR|unix.O_SYNC, 0)
	if err != nil {
		return nil, fmt.Errorf("uio: could not open %s: %w", device, err)
	}

	data, err := unix.Mmap(fd, offset, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("uio: mmap %s: %w", device, err)
	}

	return &Map{fd: fd, data: data}, nil
}

// Read32 performs a single 32-bit load from the window.
func (m *Map) Read32(offset uint32) uint32 {
	return atomic.LoadUint32(m.word(offset))
}

// Write32 performs a single 32-bit store to the window.
func (m *Map) Write32(offset uint32, value uint32) {
	atomic.StoreUint32(m.word(offset), value)
}

func (m *Map) word(offset uint32) *uint32 {
	if offset&3 != 0 || int(offset)+4 > len(m.data) {
		panic(fmt.Sprintf("uio: register offset 0x%X outside window", offset))
	}
	return (*uint32)(unsafe.Pointer(&m.data[offset]))
}

// Close unmaps the window and closes the device.
func (m *Map) Close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	if cerr := unix.Close(m.fd); err == nil {
		err = cerr
	}
	return err
}
