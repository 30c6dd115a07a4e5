// Package sim simulates the board so the acquisition loop runs without
// hardware: converter registers, the DMA engine, cache maintenance and the
// GPIO lines with scripted button presses.
package sim

import (
	"log"
	"time"

	"go.uber.org/multierr"

	"github.com/itohio/xadcstream/pkg/config"
	"github.com/itohio/xadcstream/pkg/uio"
	"github.com/itohio/xadcstream/pkg/xadc"
)

// Calibration coefficients reported by the simulated converter.
const (
	OffsetCoeff = 0xFFD0 // -3 LSB
	GainCoeff   = xadc.GainInternalReference
)

// Board wires the simulated peripherals together.
type Board struct {
	Regs      *uio.Mem
	Converter *xadc.Device
	DMA       *Engine
	Cache     *Cache
	GPIO      *Port
}

// New creates a simulated board. With script set, BTN0 and BTN1 are pressed
// on the schedule from cfg.Sim.
func New(cfg *config.Config, script bool) *Board {
	regs := uio.NewMem()
	regs.Set(xadc.RegOffsetCoeff, OffsetCoeff)
	regs.Set(xadc.RegGainCoeff, GainCoeff)

	gen := NewGenerator(cfg.Sim, regs, uint64(time.Now().UnixNano()))
	engine := NewEngine(gen, cfg.Sim.TransferDelay)

	var s *Script
	if script {
		s = NewScript(cfg.Sim, cfg.Acquisition.PollInterval, cfg.Buttons.Threshold)
		log.Printf("sim: BTN0 every %d polls, BTN1 after every %d captures", s.Period, s.SwitchEvery)
	}
	port := NewPort(s, cfg.Buttons.ActiveLow)
	port.onPulse = engine.start

	return &Board{
		Regs:      regs,
		Converter: xadc.NewDevice(regs),
		DMA:       engine,
		Cache:     NewCache(engine),
		GPIO:      port,
	}
}

// Close stops the simulated DMA engine.
func (b *Board) Close() error {
	return multierr.Combine(b.DMA.Close(), b.GPIO.Close())
}
