package xadc

// GainInternalReference is the gain coefficient reported when the board
// relies on the FPGA's internal voltage reference. It must be ignored.
const GainInternalReference = 0x007F

// Calibration holds the raw calibration coefficient registers.
type Calibration struct {
	OffsetRaw uint16 // ADC offset coefficient, 12-bit value in the top bits
	GainRaw   uint16 // ADC gain error coefficient, sign-magnitude in the low 7 bits
}

// Offset returns the ADC offset coefficient in LSBs.
func (c Calibration) Offset() int16 {
	return SignExtend12(c.OffsetRaw >> 4)
}

// GainPercent returns the gain correction in percent.
func (c Calibration) GainPercent() float32 {
	return GainCoefficientPercent(c.GainRaw)
}

// InternalReference reports whether the gain coefficient indicates the
// internal reference, in which case only offset calibration applies.
func (c Calibration) InternalReference() bool {
	return c.GainRaw == GainInternalReference
}

// SignExtend12 interprets the low 12 bits of v as a two's complement number.
func SignExtend12(v uint16) int16 {
	v &= 0x0FFF
	if v&0x0800 != 0 {
		v |= 0xF000
	}
	return int16(v)
}

// GainCoefficientPercent decodes the gain calibration coefficient. Bits 0..5
// count tenths of a percent, bit 6 is the sign where 0 means negative.
func GainCoefficientPercent(raw uint16) float32 {
	res := float32(raw&0x3F) * 0.1
	if raw&0x40 == 0 {
		res = -res
	}
	return res
}
