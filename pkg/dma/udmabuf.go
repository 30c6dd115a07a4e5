//go:build linux

package dma

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// UDMABuf is a physically contiguous buffer allocated by the u-dma-buf
// kernel module. It is mapped cached, so every transfer must be bracketed
// by Flush and Invalidate.
type UDMABuf struct {
	name string
	fd   int
	data []byte
	sync syncer
	buf  *Buffer
}

var _ Cache = (*UDMABuf)(nil)

// OpenUDMABuf maps /dev/<name> and wraps it as a buffer of sampleCount
// samples.
func OpenUDMABuf(name string, sampleCount int) (*UDMABuf, error) {
	return openUDMABuf(SysfsRoot, "/dev/"+name, name, sampleCount)
}

func openUDMABuf(root, device, name string, sampleCount int) (*UDMABuf, error) {
	s := newSyncer(root, name)
	phys, err := s.readUint("phys_addr")
	if err != nil {
		return nil, err
	}
	size, err := s.readUint("size")
	if err != nil {
		return nil, err
	}
	if need := BufferSize(sampleCount); uint64(need) > size {
		return nil, fmt.Errorf("dma: %s has %d bytes, %d samples need %d", name, size, sampleCount, need)
	}

	fd, err := unix.Open(device, unix.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("dma: could not open %s: %w", device, err)
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("dma: mmap %s: %w", device, err)
	}

	buf, err := WrapBuffer(data, phys, sampleCount)
	if err != nil {
		unix.Munmap(data)
		unix.Close(fd)
		return nil, err
	}

	return &UDMABuf{name: name, fd: fd, data: data, sync: s, buf: buf}, nil
}

// Buffer returns the sample buffer backed by the mapping.
func (u *UDMABuf) Buffer() *Buffer { return u.buf }

// Flush implements Cache.
func (u *UDMABuf) Flush(buf *Buffer) error {
	if err := u.check(buf); err != nil {
		return err
	}
	return u.sync.flush(buf.Size())
}

// Invalidate implements Cache.
func (u *UDMABuf) Invalidate(buf *Buffer) error {
	if err := u.check(buf); err != nil {
		return err
	}
	return u.sync.invalidate(buf.Size())
}

func (u *UDMABuf) check(buf *Buffer) error {
	if buf != u.buf {
		return fmt.Errorf("dma: buffer does not belong to %s", u.name)
	}
	return nil
}

// Close unmaps the buffer.
func (u *UDMABuf) Close() error {
	if u.data == nil {
		return nil
	}
	err := unix.Munmap(u.data)
	u.data = nil
	if cerr := unix.Close(u.fd); err == nil {
		err = cerr
	}
	return err
}
