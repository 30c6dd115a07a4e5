// Package uio maps peripheral register windows into the process through a
// UIO device node or /dev/mem.
package uio

import "sync"

// Registers is a 32-bit register window.
type Registers interface {
	Read32(offset uint32) uint32
	Write32(offset uint32, value uint32)
}

// Mem is an in-memory register window. Registers read as zero until written.
type Mem struct {
	mu   sync.Mutex
	regs map[uint32]uint32

	// OnWrite, when set, is called after every store with the lock released.
	OnWrite func(offset, value uint32)
}

var _ Registers = (*Mem)(nil)

// NewMem creates an empty register window.
func NewMem() *Mem {
	return &Mem{regs: make(map[uint32]uint32)}
}

// Read32 returns the last value stored at offset.
func (m *Mem) Read32(offset uint32) uint32 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.regs[offset]
}

// Write32 stores value at offset.
func (m *Mem) Write32(offset uint32, value uint32) {
	m.mu.Lock()
	m.regs[offset] = value
	hook := m.OnWrite
	m.mu.Unlock()

	if hook != nil {
		hook(offset, value)
	}
}

// Set stores value without invoking OnWrite. It models registers the
// hardware updates on its own.
func (m *Mem) Set(offset uint32, value uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.regs[offset] = value
}
