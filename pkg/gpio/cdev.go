//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
	"go.uber.org/multierr"

	"github.com/itohio/xadcstream/pkg/config"
)

// Cdev is a Port backed by the GPIO character device.
type Cdev struct {
	buttons   *gpiocdev.Lines
	trigger   *gpiocdev.Line
	count     *gpiocdev.Lines
	countBits int
	vals      []int
}

var _ Port = (*Cdev)(nil)

// OpenCdev requests the button, start and sample count lines from cfg.Chip.
func OpenCdev(cfg config.GPIOConfig) (c *Cdev, err error) {
	c = &Cdev{countBits: cfg.CountBits, vals: make([]int, len(cfg.Buttons))}
	defer func() {
		if err != nil {
			c.Close()
			c = nil
		}
	}()

	c.buttons, err = gpiocdev.RequestLines(cfg.Chip, cfg.Buttons[:], gpiocdev.AsInput)
	if err != nil {
		return c, fmt.Errorf("gpio: request buttons %v on %s: %w", cfg.Buttons, cfg.Chip, err)
	}

	c.trigger, err = gpiocdev.RequestLine(cfg.Chip, cfg.Trigger, gpiocdev.AsOutput(0))
	if err != nil {
		return c, fmt.Errorf("gpio: request start line %d on %s: %w", cfg.Trigger, cfg.Chip, err)
	}

	if cfg.CountBits > 0 {
		c.count, err = gpiocdev.RequestLines(cfg.Chip, lineOffsets(cfg.CountBase, cfg.CountBits),
			gpiocdev.AsOutput(make([]int, cfg.CountBits)...))
		if err != nil {
			return c, fmt.Errorf("gpio: request count lines %d+%d on %s: %w", cfg.CountBase, cfg.CountBits, cfg.Chip, err)
		}
	}

	return c, nil
}

// Buttons implements Port.
func (c *Cdev) Buttons() (uint8, error) {
	if err := c.buttons.Values(c.vals); err != nil {
		return 0, fmt.Errorf("gpio: read buttons: %w", err)
	}
	return packButtons(c.vals), nil
}

// Pulse implements Trigger.
func (c *Cdev) Pulse() error {
	if err := c.trigger.SetValue(1); err != nil {
		return fmt.Errorf("gpio: assert start: %w", err)
	}
	if err := c.trigger.SetValue(0); err != nil {
		return fmt.Errorf("gpio: deassert start: %w", err)
	}
	return nil
}

// SetSampleCount implements Port.
func (c *Cdev) SetSampleCount(n int) error {
	if c.count == nil {
		return nil
	}
	vals, err := countValues(n, c.countBits)
	if err != nil {
		return err
	}
	if err := c.count.SetValues(vals); err != nil {
		return fmt.Errorf("gpio: write sample count: %w", err)
	}
	return nil
}

// Close releases all requested lines.
func (c *Cdev) Close() error {
	var err error
	if c.buttons != nil {
		err = multierr.Append(err, c.buttons.Close())
		c.buttons = nil
	}
	if c.trigger != nil {
		err = multierr.Append(err, c.trigger.Close())
		c.trigger = nil
	}
	if c.count != nil {
		err = multierr.Append(err, c.count.Close())
		c.count = nil
	}
	return err
}
