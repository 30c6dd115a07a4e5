package config

import (
	"errors"
	"fmt"

	"github.com/itohio/xadcstream/pkg/xadc"
)

// MaxSampleCount is the widest transfer the sample count lines and the
// DMA length register can express.
const MaxSampleCount = 0x01FFFFFF

// ErrInvalid is returned by Validate for any rejected setting.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalid)
	}

	a := cfg.Acquisition
	if a.SampleCount <= 0 || a.SampleCount > MaxSampleCount {
		return fmt.Errorf("%w: sample_count %d out of range 1..%d", ErrInvalid, a.SampleCount, MaxSampleCount)
	}
	if _, err := xadc.ParseAveraging(a.Averaging); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if a.PollInterval <= 0 {
		return fmt.Errorf("%w: poll_interval must be > 0", ErrInvalid)
	}
	if a.DMATimeout < 0 {
		return fmt.Errorf("%w: dma_timeout must be >= 0", ErrInvalid)
	}

	if cfg.Buttons.Threshold < 1 {
		return fmt.Errorf("%w: buttons.threshold must be >= 1", ErrInvalid)
	}

	s := cfg.Stream
	if s.Endpoint == "" {
		return fmt.Errorf("%w: stream.endpoint required", ErrInvalid)
	}
	if s.Precision < 1 || s.Precision > 17 {
		return fmt.Errorf("%w: stream.precision %d out of range 1..17", ErrInvalid, s.Precision)
	}

	g := cfg.Hardware.GPIO
	switch g.Backend {
	case "gpiocdev", "periph":
	default:
		return fmt.Errorf("%w: hardware.gpio.backend %q must be gpiocdev or periph", ErrInvalid, g.Backend)
	}
	if g.CountBits < 0 || g.CountBits > 32 {
		return fmt.Errorf("%w: hardware.gpio.count_bits %d out of range 0..32", ErrInvalid, g.CountBits)
	}
	if g.CountBits < 32 && uint64(a.SampleCount) >= 1<<uint(g.CountBits) {
		return fmt.Errorf("%w: sample_count %d does not fit in %d count lines", ErrInvalid, a.SampleCount, g.CountBits)
	}
	if g.Buttons[0] == g.Buttons[1] {
		return fmt.Errorf("%w: hardware.gpio.buttons must be distinct lines", ErrInvalid)
	}

	return nil
}
