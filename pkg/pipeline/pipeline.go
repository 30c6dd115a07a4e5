// Package pipeline runs the button driven acquisition loop: debounce the
// buttons, capture and stream on BTN0, switch the input channel on BTN1.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/itohio/xadcstream/pkg/button"
	"github.com/itohio/xadcstream/pkg/stream"
	"github.com/itohio/xadcstream/pkg/xadc"
)

// DefaultPreview is the number of decoded values logged after a capture.
const DefaultPreview = 8

// ErrInit is returned when the board could not be brought up.
var ErrInit = errors.New("initialization failed")

// State of the loop.
type State int32

const (
	Idle State = iota
	Capturing
	SwitchingChannel
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Capturing:
		return "capturing"
	case SwitchingChannel:
		return "switching channel"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Buttons reads the raw button port.
type Buttons interface {
	Buttons() (uint8, error)
}

// Acquirer captures one buffer of raw samples.
type Acquirer interface {
	Capture() error
	Samples() []xadc.RawSample
}

// Sink delivers one decoded series.
type Sink interface {
	Stream(series []float32) error
}

// Selector owns the active input channel.
type Selector interface {
	Mode() xadc.ChannelMode
	Decoder() xadc.Decoder
	Toggle() error
}

// Deps are the collaborators of the loop.
type Deps struct {
	Buttons      Buttons
	Debouncer    *button.Debouncer
	Selector     Selector
	Acquirer     Acquirer
	Sink         Sink
	PollInterval time.Duration
	Preview      int // values logged per capture, 0 uses DefaultPreview, <0 disables
	Precision    int // significant digits of the preview, 0 uses stream.DefaultPrecision
}

// Loop is the acquisition state machine. Tick and Run must be called from
// a single goroutine; State may be read from any.
type Loop struct {
	deps   Deps
	state  atomic.Int32
	series []float32

	captures atomic.Int64
	streamed atomic.Int64
}

// New creates a loop in the Idle state.
func New(deps Deps) (*Loop, error) {
	switch {
	case deps.Buttons == nil:
		return nil, fmt.Errorf("%w: no button port", ErrInit)
	case deps.Debouncer == nil:
		return nil, fmt.Errorf("%w: no debouncer", ErrInit)
	case deps.Selector == nil:
		return nil, fmt.Errorf("%w: no channel selector", ErrInit)
	case deps.Acquirer == nil:
		return nil, fmt.Errorf("%w: no acquisition engine", ErrInit)
	case deps.Sink == nil:
		return nil, fmt.Errorf("%w: no sink", ErrInit)
	}
	if deps.PollInterval <= 0 {
		deps.PollInterval = time.Millisecond
	}
	if deps.Preview == 0 {
		deps.Preview = DefaultPreview
	}
	if deps.Precision <= 0 {
		deps.Precision = stream.DefaultPrecision
	}
	return &Loop{deps: deps}, nil
}

// State returns the current state.
func (l *Loop) State() State {
	return State(l.state.Load())
}

// Captures returns the number of successful captures.
func (l *Loop) Captures() int64 {
	return l.captures.Load()
}

// Streamed returns the number of series delivered to the sink.
func (l *Loop) Streamed() int64 {
	return l.streamed.Load()
}

// Tick performs one poll. BTN0 is handled before BTN1 when both fire on the
// same tick. A non-nil error is fatal: a failed capture or button read.
// Stream and channel switch failures are logged and the loop stays Idle.
func (l *Loop) Tick() error {
	raw, err := l.deps.Buttons.Buttons()
	if err != nil {
		return fmt.Errorf("read buttons: %w", err)
	}

	var fatal error
	l.deps.Debouncer.Process(raw).Each(func(b button.Button) {
		if fatal != nil {
			return
		}
		switch b {
		case button.BTN0:
			fatal = l.capture()
		case button.BTN1:
			l.switchChannel()
		}
	})

	return fatal
}

func (l *Loop) capture() error {
	l.state.Store(int32(Capturing))
	defer l.state.Store(int32(Idle))

	if err := l.deps.Acquirer.Capture(); err != nil {
		return err
	}
	l.captures.Add(1)

	samples := l.deps.Acquirer.Samples()
	if cap(l.series) < len(samples) {
		l.series = make([]float32, len(samples))
	}
	series := xadc.DecodeSeries(samples, l.deps.Selector.Decoder(), l.series)
	l.preview(series)

	if err := l.deps.Sink.Stream(series); err != nil {
		log.Printf("Could not send %d samples: %v", len(series), err)
		return nil
	}
	l.streamed.Add(1)

	return nil
}

func (l *Loop) preview(series []float32) {
	n := min(l.deps.Preview, len(series))
	if n <= 0 {
		return
	}
	var sb strings.Builder
	for i, v := range series[:n] {
		if i > 0 {
			sb.WriteByte(' ')
		}
		sb.WriteString(stream.FormatVoltage(v, l.deps.Precision))
	}
	log.Printf("%v: [%s] (%d samples)", l.deps.Selector.Mode(), sb.String(), len(series))
}

func (l *Loop) switchChannel() {
	l.state.Store(int32(SwitchingChannel))
	defer l.state.Store(int32(Idle))

	if err := l.deps.Selector.Toggle(); err != nil {
		log.Printf("Channel switch failed, keeping %v: %v", l.deps.Selector.Mode(), err)
	}
}

// Run calls Tick every poll interval until ctx is done or Tick fails.
// Cancellation is only observed between ticks and returns nil.
func (l *Loop) Run(ctx context.Context) error {
	ticker := time.NewTicker(l.deps.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := l.Tick(); err != nil {
				return err
			}
		}
	}
}
