package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/itohio/xadcstream/pkg/dma"
)

// Engine simulates the AXI DMA S2MM channel. A transfer is armed by
// Transfer and streams only after the start line is pulsed, then stays
// busy for the configured transfer delay.
type Engine struct {
	gen   *Generator
	delay time.Duration

	mu        sync.Mutex
	armed     *dma.Buffer
	length    int
	busy      bool
	transfers int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ dma.Engine = (*Engine)(nil)

// NewEngine creates a simulated engine filling buffers from gen.
func NewEngine(gen *Generator, delay time.Duration) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		gen:    gen,
		delay:  delay,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Transfer implements dma.Engine.
func (e *Engine) Transfer(buf *dma.Buffer, length int, dir dma.Direction) error {
	if dir != dma.DeviceToMemory {
		return fmt.Errorf("sim: only %v transfers are wired", dma.DeviceToMemory)
	}
	if length <= 0 || length > buf.Size() {
		return fmt.Errorf("sim: length %d out of range", length)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ctx.Err() != nil {
		return fmt.Errorf("sim: engine closed")
	}
	if e.busy {
		return fmt.Errorf("sim: channel busy")
	}
	e.armed = buf
	e.length = length
	e.busy = true

	return nil
}

// Busy implements dma.Engine.
func (e *Engine) Busy() (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.busy, nil
}

// Transfers returns the number of completed transfers.
func (e *Engine) Transfers() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.transfers
}

// start models the logic streaming count samples after a start pulse. The
// stream ends early at count samples, like the logic asserting TLAST. With
// no armed transfer or a zero count nothing is streamed.
func (e *Engine) start(count int) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.armed == nil || count <= 0 || e.ctx.Err() != nil {
		return
	}
	buf := e.armed
	n := min(count, e.length/dma.SampleSize, buf.Len())
	e.armed = nil

	e.wg.Add(1)
	go e.stream(buf, n)
}

func (e *Engine) stream(buf *dma.Buffer, n int) {
	defer e.wg.Done()

	timer := time.NewTimer(e.delay)
	defer timer.Stop()

	select {
	case <-e.ctx.Done():
		return
	case <-timer.C:
	}

	e.gen.Fill(buf, n)

	e.mu.Lock()
	e.busy = false
	e.transfers++
	e.mu.Unlock()
}

// Close aborts any transfer in flight and waits for it to stop.
func (e *Engine) Close() error {
	e.cancel()
	e.wg.Wait()
	return nil
}
