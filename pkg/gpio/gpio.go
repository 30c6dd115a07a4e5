// Package gpio drives the digital lines shared with the programmable logic:
// the two button inputs, the single-cycle start line and the sample count
// field that tells the logic how many samples to stream per start pulse.
package gpio

import "fmt"

// Trigger is the hardware start line.
type Trigger interface {
	// Pulse asserts the start line and immediately deasserts it.
	Pulse() error
}

// Port is the digital I/O collaborator.
type Port interface {
	Trigger
	// Buttons returns the raw button levels, bit 0 = BTN0, bit 1 = BTN1.
	Buttons() (uint8, error)
	// SetSampleCount drives the sample count lines.
	SetSampleCount(n int) error
	Close() error
}

// countValues splits n into per-line values, least significant bit first.
func countValues(n, bits int) ([]int, error) {
	if n < 0 || (bits < 63 && uint64(n) >= 1<<uint(bits)) {
		return nil, fmt.Errorf("gpio: sample count %d does not fit in %d lines", n, bits)
	}
	vals := make([]int, bits)
	for i := range vals {
		vals[i] = (n >> uint(i)) & 1
	}
	return vals, nil
}

// packButtons converts per-line values into the raw button bitmask.
func packButtons(vals []int) uint8 {
	var raw uint8
	for i, v := range vals {
		if v != 0 {
			raw |= 1 << uint(i)
		}
	}
	return raw
}

// lineOffsets returns count consecutive offsets starting at base.
func lineOffsets(base, count int) []int {
	offsets := make([]int, count)
	for i := range offsets {
		offsets[i] = base + i
	}
	return offsets
}
