package dma

import (
	"errors"
	"fmt"

	"github.com/itohio/xadcstream/pkg/uio"
)

// AXI DMA register map, simple (direct register) mode.
const (
	RegMM2SDMACR  = 0x00
	RegMM2SDMASR  = 0x04
	RegMM2SSA     = 0x18
	RegMM2SSAMSB  = 0x1C
	RegMM2SLength = 0x28
	RegS2MMDMACR  = 0x30
	RegS2MMDMASR  = 0x34
	RegS2MMDA     = 0x48
	RegS2MMDAMSB  = 0x4C
	RegS2MMLength = 0x58
)

const (
	DMACRRunStop = 0x0001
	DMACRReset   = 0x0004

	DMASRHalted    = 0x0001
	DMASRIdle      = 0x0002
	DMASRIntErr    = 0x0010
	DMASRSlvErr    = 0x0020
	DMASRDecErr    = 0x0040
	DMASRErrorMask = DMASRIntErr | DMASRSlvErr | DMASRDecErr

	// MaxLength is the widest value of the 26-bit length register.
	MaxLength = 0x03FFFFFF

	resetPolls = 1000
)

// ErrHalted is returned by Busy when the channel stopped with an error.
var ErrHalted = errors.New("dma: channel halted")

type channel struct {
	cr, sr, addr, addrMSB, length uint32
}

var channels = [...]channel{
	MemoryToDevice: {RegMM2SDMACR, RegMM2SDMASR, RegMM2SSA, RegMM2SSAMSB, RegMM2SLength},
	DeviceToMemory: {RegS2MMDMACR, RegS2MMDMASR, RegS2MMDA, RegS2MMDAMSB, RegS2MMLength},
}

// AXI drives a Xilinx AXI DMA core through its register window.
type AXI struct {
	regs   uio.Registers
	active *channel
	wide   bool // an MSB register was programmed and must be kept current
}

var _ Engine = (*AXI)(nil)

// NewAXI creates an engine over a mapped register window.
func NewAXI(regs uio.Registers) *AXI {
	return &AXI{regs: regs}
}

// Reset soft-resets both channels and waits for the core to clear the bit.
func (a *AXI) Reset() error {
	a.regs.Write32(RegS2MMDMACR, DMACRReset)
	for i := 0; i < resetPolls; i++ {
		if a.regs.Read32(RegS2MMDMACR)&DMACRReset == 0 {
			a.active = nil
			return nil
		}
	}
	return fmt.Errorf("dma: reset did not complete")
}

// Transfer implements Engine. Writing the length register starts the
// transfer, so it is programmed last.
func (a *AXI) Transfer(buf *Buffer, length int, dir Direction) error {
	if dir != MemoryToDevice && dir != DeviceToMemory {
		return fmt.Errorf("dma: invalid direction %v", dir)
	}
	if length <= 0 || length > MaxLength {
		return fmt.Errorf("dma: length %d out of range 1..%d", length, MaxLength)
	}
	if length > buf.Size() {
		return fmt.Errorf("dma: length %d exceeds buffer of %d bytes", length, buf.Size())
	}

	ch := &channels[dir]
	sr := a.regs.Read32(ch.sr)
	if sr&DMASRHalted == 0 && sr&DMASRIdle == 0 && a.active == ch {
		return fmt.Errorf("dma: %v channel busy", dir)
	}

	a.regs.Write32(ch.cr, a.regs.Read32(ch.cr)|DMACRRunStop)
	a.regs.Write32(ch.addr, uint32(buf.Phys()))
	// The MSB registers are reserved on cores built with 32-bit addressing.
	if msb := uint32(buf.Phys() >> 32); msb != 0 || a.wide {
		a.regs.Write32(ch.addrMSB, msb)
		a.wide = true
	}
	a.regs.Write32(ch.length, uint32(length))
	a.active = ch

	return nil
}

// Busy implements Engine.
func (a *AXI) Busy() (bool, error) {
	if a.active == nil {
		return false, nil
	}
	sr := a.regs.Read32(a.active.sr)
	if sr&DMASRErrorMask != 0 {
		return false, fmt.Errorf("%w: status 0x%08X", ErrHalted, sr)
	}
	return sr&DMASRIdle == 0, nil
}
