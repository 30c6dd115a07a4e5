package uio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMem(t *testing.T) {
	m := NewMem()
	var writes []uint32
	m.OnWrite = func(offset, value uint32) {
		writes = append(writes, offset)
	}

	assert.Equal(t, uint32(0), m.Read32(0x10))
	m.Write32(0x10, 7)
	m.Set(0x14, 9)

	assert.Equal(t, uint32(7), m.Read32(0x10))
	assert.Equal(t, uint32(9), m.Read32(0x14))
	assert.Equal(t, []uint32{0x10}, writes, "Set must not trigger OnWrite")
}
