package xadc

import (
	"github.com/chewxy/math32"
)

// Scale is the VAUX1 full scale in volts. The input sits behind a
// R1 = 2.32 kOhm / R2 = 1 kOhm divider.
const Scale float32 = 3.32

// Decoder converts one raw sample to volts.
type Decoder func(raw RawSample) float32

var decoders = [...]func(RawSample, AveragingMode) float32{
	UnipolarAux:         DecodeUnipolar,
	BipolarDifferential: DecodeBipolar,
}

// DecoderFor binds the decode function of mode to the averaging setting.
func DecoderFor(mode ChannelMode, avg AveragingMode) Decoder {
	if !mode.Valid() {
		mode = UnipolarAux
	}
	decode := decoders[mode]
	return func(raw RawSample) float32 {
		return decode(raw, avg)
	}
}

// DecodeUnipolar converts a unipolar VAUX1 sample to volts in [0, Scale].
func DecodeUnipolar(raw RawSample, avg AveragingMode) float32 {
	if avg == AvgNone {
		return Scale * (float32(raw>>4) / float32(0xFFF))
	}
	return Scale * (float32(raw) / float32(0xFFFF))
}

// DecodeBipolar converts a two's complement VP/VN sample to volts in
// [-0.5, 0.5).
func DecodeBipolar(raw RawSample, avg AveragingMode) float32 {
	bits := avg.ValidBits()
	field := uint32(raw) >> (16 - bits)
	signBit := uint32(1) << (bits - 1)

	// The most negative code has no positive counterpart in bits.
	if field == signBit {
		return -0.5
	}

	sign := float32(1)
	magnitude := field
	if field&signBit != 0 {
		sign = -1
		magnitude = (^field + 1) & (signBit<<1 - 1)
	}

	return sign * math32.Ldexp(float32(magnitude), -int(bits))
}

// DecodeSeries decodes samples into dst, which must be at least as long as
// samples, and returns the filled prefix.
func DecodeSeries(samples []RawSample, decode Decoder, dst []float32) []float32 {
	dst = dst[:len(samples)]
	for i, raw := range samples {
		dst[i] = decode(raw)
	}
	return dst
}
