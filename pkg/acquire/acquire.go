// Package acquire runs one DMA-synchronised capture of the converter
// stream into a sample buffer.
package acquire

import (
	"errors"
	"fmt"
	"time"

	"github.com/itohio/xadcstream/pkg/dma"
	"github.com/itohio/xadcstream/pkg/gpio"
	"github.com/itohio/xadcstream/pkg/xadc"
)

var (
	// ErrCapture is returned when a transfer could not be started or completed.
	ErrCapture = errors.New("capture failed")
	// ErrCaptureTimeout is returned when the engine stays busy past the
	// configured timeout. It also matches ErrCapture.
	ErrCaptureTimeout = fmt.Errorf("%w: dma timeout", ErrCapture)
)

// Config holds the capture parameters fixed for the process lifetime.
type Config struct {
	SampleCount  int
	PollInterval time.Duration
	// Timeout bounds the busy wait. Zero waits forever.
	Timeout time.Duration
}

// Engine captures SampleCount samples per call.
type Engine struct {
	cfg     Config
	dma     dma.Engine
	cache   dma.Cache
	trigger gpio.Trigger
	buf     *dma.Buffer

	sleep func(time.Duration)
	now   func() time.Time
}

// New creates an acquisition engine writing into buf.
func New(cfg Config, engine dma.Engine, cache dma.Cache, trigger gpio.Trigger, buf *dma.Buffer) (*Engine, error) {
	if cfg.SampleCount <= 0 {
		return nil, fmt.Errorf("acquire: invalid sample count %d", cfg.SampleCount)
	}
	if buf == nil || buf.Len() < cfg.SampleCount {
		return nil, fmt.Errorf("acquire: buffer too small for %d samples", cfg.SampleCount)
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Millisecond
	}
	return &Engine{
		cfg:     cfg,
		dma:     engine,
		cache:   cache,
		trigger: trigger,
		buf:     buf,
		sleep:   time.Sleep,
		now:     time.Now,
	}, nil
}

// Capture flushes the buffer, arms the engine, pulses the start line, waits
// for the engine to go idle and invalidates the buffer. The buffer contents
// are valid only when Capture returns nil.
func (e *Engine) Capture() error {
	if err := e.cache.Flush(e.buf); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrCapture, err)
	}

	if err := e.dma.Transfer(e.buf, e.cfg.SampleCount*dma.SampleSize, dma.DeviceToMemory); err != nil {
		return fmt.Errorf("%w: transfer: %w", ErrCapture, err)
	}

	if err := e.trigger.Pulse(); err != nil {
		return fmt.Errorf("%w: start: %w", ErrCapture, err)
	}

	if err := e.wait(); err != nil {
		return err
	}

	if err := e.cache.Invalidate(e.buf); err != nil {
		return fmt.Errorf("%w: invalidate: %w", ErrCapture, err)
	}

	return nil
}

func (e *Engine) wait() error {
	var deadline time.Time
	if e.cfg.Timeout > 0 {
		deadline = e.now().Add(e.cfg.Timeout)
	}

	for {
		busy, err := e.dma.Busy()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrCapture, err)
		}
		if !busy {
			return nil
		}
		if !deadline.IsZero() && !e.now().Before(deadline) {
			return fmt.Errorf("%w after %v", ErrCaptureTimeout, e.cfg.Timeout)
		}
		e.sleep(e.cfg.PollInterval)
	}
}

// Samples returns the captured samples, excluding the pad. The slice is
// reused by the next capture.
func (e *Engine) Samples() []xadc.RawSample {
	return e.buf.Samples()[:e.cfg.SampleCount]
}

// SampleCount returns the number of samples per capture.
func (e *Engine) SampleCount() int {
	return e.cfg.SampleCount
}
