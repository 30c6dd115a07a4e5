// Package dma moves converter samples into memory. It holds the sample
// buffer shared with the DMA engine, the engine and cache collaborators used
// by the acquisition loop and their AXI DMA / u-dma-buf implementations.
package dma

import (
	"encoding/binary"
	"fmt"

	"github.com/itohio/xadcstream/pkg/xadc"
)

// Direction of a transfer relative to the processor.
type Direction int

const (
	MemoryToDevice Direction = iota
	DeviceToMemory
)

func (d Direction) String() string {
	switch d {
	case MemoryToDevice:
		return "mem->dev"
	case DeviceToMemory:
		return "dev->mem"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Engine starts transfers and reports whether one is in flight.
type Engine interface {
	Transfer(buf *Buffer, length int, dir Direction) error
	Busy() (bool, error)
}

// Cache keeps the processor's view of a Buffer coherent with the engine's.
type Cache interface {
	// Flush writes back cached lines before the engine writes the buffer.
	Flush(buf *Buffer) error
	// Invalidate discards cached lines after the engine wrote the buffer.
	Invalidate(buf *Buffer) error
}

// SampleSize is the size of one RawSample in bytes.
const SampleSize = 2

// PadBytes trail the samples. The stream may overrun the requested
// length by a bus beat, so the pad is included in cache maintenance but
// never decoded.
const PadBytes = 16

// Buffer is the DMA target region.
type Buffer struct {
	data    []byte
	phys    uint64
	count   int
	samples []xadc.RawSample
}

// BufferSize returns the bytes needed for sampleCount samples plus the pad.
func BufferSize(sampleCount int) int {
	return sampleCount*SampleSize + PadBytes
}

// NewBuffer allocates a heap-backed buffer. Its physical address is zero,
// so it is only usable with engines that write through the slice.
func NewBuffer(sampleCount int) *Buffer {
	b, _ := WrapBuffer(make([]byte, BufferSize(sampleCount)), 0, sampleCount)
	return b
}

// WrapBuffer uses an existing mapping at physical address phys as a buffer
// of sampleCount samples.
func WrapBuffer(data []byte, phys uint64, sampleCount int) (*Buffer, error) {
	if sampleCount <= 0 {
		return nil, fmt.Errorf("dma: invalid sample count %d", sampleCount)
	}
	need := BufferSize(sampleCount)
	if len(data) < need {
		return nil, fmt.Errorf("dma: %d samples need %d bytes, region has %d", sampleCount, need, len(data))
	}
	return &Buffer{
		data:    data[:need],
		phys:    phys,
		count:   sampleCount,
		samples: make([]xadc.RawSample, sampleCount),
	}, nil
}

// Len returns the number of samples the buffer holds.
func (b *Buffer) Len() int { return b.count }

// Size returns the buffer size in bytes, pad included.
func (b *Buffer) Size() int { return len(b.data) }

// Phys returns the bus address of the first byte.
func (b *Buffer) Phys() uint64 { return b.phys }

// Bytes exposes the raw region, pad included.
func (b *Buffer) Bytes() []byte { return b.data }

// Samples decodes the little-endian samples, excluding the pad. The
// returned slice is reused by the next call.
func (b *Buffer) Samples() []xadc.RawSample {
	for i := range b.samples {
		b.samples[i] = binary.LittleEndian.Uint16(b.data[i*SampleSize:])
	}
	return b.samples
}

// Put stores sample i. Engines that write through the slice use it.
func (b *Buffer) Put(i int, v xadc.RawSample) {
	binary.LittleEndian.PutUint16(b.data[i*SampleSize:], v)
}
