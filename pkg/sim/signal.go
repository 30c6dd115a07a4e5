package sim

import (
	"math/rand/v2"

	"github.com/chewxy/math32"

	"github.com/itohio/xadcstream/pkg/config"
	"github.com/itohio/xadcstream/pkg/dma"
	"github.com/itohio/xadcstream/pkg/uio"
	"github.com/itohio/xadcstream/pkg/xadc"
)

// EncodeUnipolar returns the raw sample for an input at frac of full scale.
func EncodeUnipolar(frac float32, avg xadc.AveragingMode) xadc.RawSample {
	frac = clamp(frac, 0, 1)
	if avg == xadc.AvgNone {
		return xadc.RawSample(math32.Round(frac*0xFFF)) << 4
	}
	return xadc.RawSample(math32.Round(frac * 0xFFFF))
}

// EncodeBipolar returns the raw two's complement sample for a differential
// input of v volts. Inputs outside [-0.5, 0.5) saturate.
func EncodeBipolar(v float32, avg xadc.AveragingMode) xadc.RawSample {
	bits := avg.ValidBits()
	lim := int32(1) << (bits - 1)
	code := int32(math32.Round(math32.Ldexp(v, int(bits))))
	if code < -lim {
		code = -lim
	}
	if code > lim-1 {
		code = lim - 1
	}
	return xadc.RawSample(uint32(code<<(16-bits)) & 0xFFFF)
}

func clamp(v, lo, hi float32) float32 {
	return math32.Max(lo, math32.Min(hi, v))
}

// Generator produces the converter output for the channel currently
// programmed in the converter registers.
type Generator struct {
	cfg   config.SimConfig
	regs  uio.Registers
	rng   *rand.Rand
	phase float32
}

// NewGenerator creates a sine generator watching regs.
func NewGenerator(cfg config.SimConfig, regs uio.Registers, seed uint64) *Generator {
	return &Generator{
		cfg:  cfg,
		regs: regs,
		rng:  rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)),
	}
}

// Fill writes n samples into buf. Every call continues the waveform with a
// new phase so consecutive captures differ.
func (g *Generator) Fill(buf *dma.Buffer, n int) {
	cfr0 := g.regs.Read32(xadc.RegCFR0)
	bipolar := cfr0&xadc.CFR0Bipolar != 0
	avg := xadc.AveragingMode((cfr0 & xadc.CFR0AvgMask) >> xadc.CFR0AvgShift)

	amp := float32(g.cfg.Amplitude)
	noise := float32(g.cfg.Noise)
	step := 2 * math32.Pi * float32(g.cfg.Frequency) / float32(n)

	for i := 0; i < n; i++ {
		s := amp*math32.Sin(g.phase+step*float32(i)) + noise*float32(g.rng.NormFloat64())
		if bipolar {
			buf.Put(i, EncodeBipolar(0.5*s, avg))
		} else {
			buf.Put(i, EncodeUnipolar(0.5+0.5*s, avg))
		}
	}

	g.phase = math32.Mod(g.phase+0.7, 2*math32.Pi)
}
