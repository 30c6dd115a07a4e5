package gpio

import (
	"fmt"
	"strconv"

	pgpio "periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/itohio/xadcstream/pkg/config"
)

// Periph is a Port backed by periph.io pin drivers. Pins are looked up by
// their global number, PinBase + line offset.
type Periph struct {
	buttons [2]pgpio.PinIO
	trigger pgpio.PinIO
	count   []pgpio.PinIO
}

var _ Port = (*Periph)(nil)

// OpenPeriph initializes the periph.io host drivers and configures the pins.
func OpenPeriph(cfg config.GPIOConfig) (*Periph, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio: periph host init: %w", err)
	}

	lookup := func(offset int) (pgpio.PinIO, error) {
		name := strconv.Itoa(cfg.PinBase + offset)
		p := gpioreg.ByName(name)
		if p == nil {
			return nil, fmt.Errorf("gpio: no pin %s", name)
		}
		return p, nil
	}

	p := &Periph{}
	for i, offset := range cfg.Buttons {
		pin, err := lookup(offset)
		if err != nil {
			return nil, err
		}
		if err := pin.In(pgpio.PullNoChange, pgpio.NoEdge); err != nil {
			return nil, fmt.Errorf("gpio: configure button %d: %w", i, err)
		}
		p.buttons[i] = pin
	}

	trigger, err := lookup(cfg.Trigger)
	if err != nil {
		return nil, err
	}
	if err := trigger.Out(pgpio.Low); err != nil {
		return nil, fmt.Errorf("gpio: configure start line: %w", err)
	}
	p.trigger = trigger

	for _, offset := range lineOffsets(cfg.CountBase, cfg.CountBits) {
		pin, err := lookup(offset)
		if err != nil {
			return nil, err
		}
		if err := pin.Out(pgpio.Low); err != nil {
			return nil, fmt.Errorf("gpio: configure count line %d: %w", offset, err)
		}
		p.count = append(p.count, pin)
	}

	return p, nil
}

// Buttons implements Port.
func (p *Periph) Buttons() (uint8, error) {
	vals := make([]int, len(p.buttons))
	for i, pin := range p.buttons {
		if pin.Read() == pgpio.High {
			vals[i] = 1
		}
	}
	return packButtons(vals), nil
}

// Pulse implements Trigger.
func (p *Periph) Pulse() error {
	if err := p.trigger.Out(pgpio.High); err != nil {
		return fmt.Errorf("gpio: assert start: %w", err)
	}
	if err := p.trigger.Out(pgpio.Low); err != nil {
		return fmt.Errorf("gpio: deassert start: %w", err)
	}
	return nil
}

// SetSampleCount implements Port.
func (p *Periph) SetSampleCount(n int) error {
	vals, err := countValues(n, len(p.count))
	if err != nil {
		return err
	}
	for i, v := range vals {
		if err := p.count[i].Out(pgpio.Level(v != 0)); err != nil {
			return fmt.Errorf("gpio: write sample count bit %d: %w", i, err)
		}
	}
	return nil
}

// Close implements Port. periph.io pins hold no per-process resources.
func (p *Periph) Close() error {
	return nil
}
