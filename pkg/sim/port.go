package sim

import (
	"fmt"
	"sync"
	"time"

	"github.com/itohio/xadcstream/pkg/button"
	"github.com/itohio/xadcstream/pkg/config"
	"github.com/itohio/xadcstream/pkg/gpio"
)

// Script presses BTN0 once per Period polls and BTN1 after every
// SwitchEvery-th BTN0 press. Each press is held for Hold polls.
type Script struct {
	Period      int
	Hold        int
	SwitchEvery int

	poll int
}

// NewScript derives a script from the simulation timing. The hold time is
// long enough to pass the debouncer.
func NewScript(cfg config.SimConfig, pollInterval time.Duration, threshold int) *Script {
	if pollInterval <= 0 {
		pollInterval = time.Millisecond
	}
	if threshold < 1 {
		threshold = button.DefaultThreshold
	}
	s := &Script{
		Hold:        2*threshold + 2,
		SwitchEvery: cfg.SwitchEvery,
		Period:      int(cfg.CaptureEvery / pollInterval),
	}
	if s.Period < 6*s.Hold {
		s.Period = 6 * s.Hold
	}
	return s
}

// Next returns the pressed buttons for the next poll, bit 0 = BTN0.
func (s *Script) Next() uint8 {
	p := s.poll
	s.poll++

	cycle, phase := p/s.Period, p%s.Period
	var pressed uint8
	if phase >= s.Period/2 && phase < s.Period/2+s.Hold {
		pressed |= 1 << button.BTN0
	}
	if s.SwitchEvery > 0 && (cycle+1)%s.SwitchEvery == 0 &&
		phase >= s.Period-2*s.Hold && phase < s.Period-s.Hold {
		pressed |= 1 << button.BTN1
	}
	return pressed
}

// Port simulates the board GPIO. Button levels come from a Script or from
// SetPressed, encoded for the configured polarity.
type Port struct {
	mu        sync.Mutex
	script    *Script
	manual    bool
	pressed   uint8
	activeLow bool
	count     int
	pulses    int
	onPulse   func(count int)
}

var _ gpio.Port = (*Port)(nil)

// NewPort creates a port. script may be nil, in which case buttons read
// released until SetPressed is called.
func NewPort(script *Script, activeLow bool) *Port {
	return &Port{script: script, activeLow: activeLow}
}

// SetPressed overrides the script with a fixed set of pressed buttons.
func (p *Port) SetPressed(pressed uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.manual = true
	p.pressed = pressed
}

// Buttons implements gpio.Port.
func (p *Port) Buttons() (uint8, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pressed := p.pressed
	if !p.manual && p.script != nil {
		pressed = p.script.Next()
	}
	if p.activeLow {
		return ^pressed & 0b11, nil
	}
	return pressed, nil
}

// Pulse implements gpio.Trigger.
func (p *Port) Pulse() error {
	p.mu.Lock()
	p.pulses++
	count, hook := p.count, p.onPulse
	p.mu.Unlock()

	if hook != nil {
		hook(count)
	}
	return nil
}

// SetSampleCount implements gpio.Port.
func (p *Port) SetSampleCount(n int) error {
	if n < 0 || n > config.MaxSampleCount {
		return fmt.Errorf("sim: sample count %d out of range", n)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count = n
	return nil
}

// SampleCount returns the value on the count lines.
func (p *Port) SampleCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.count
}

// Pulses returns the number of start pulses.
func (p *Port) Pulses() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pulses
}

// Close implements gpio.Port.
func (p *Port) Close() error {
	return nil
}
