package pipeline

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/xadcstream/pkg/acquire"
	"github.com/itohio/xadcstream/pkg/button"
	"github.com/itohio/xadcstream/pkg/stream"
	"github.com/itohio/xadcstream/pkg/xadc"
)

// journal records collaborator calls across fakes.
type journal struct {
	calls []string
	loop  *Loop
}

type fakeButtons struct {
	readings []uint8
	err      error
}

func (b *fakeButtons) Buttons() (uint8, error) {
	if b.err != nil {
		return 0, b.err
	}
	if len(b.readings) == 0 {
		return 0, nil
	}
	r := b.readings[0]
	b.readings = b.readings[1:]
	return r, nil
}

type fakeAcquirer struct {
	j       *journal
	samples []xadc.RawSample
	err     error
	state   State
}

func (a *fakeAcquirer) Capture() error {
	a.j.calls = append(a.j.calls, "capture")
	a.state = a.j.loop.State()
	return a.err
}

func (a *fakeAcquirer) Samples() []xadc.RawSample { return a.samples }

type fakeSink struct {
	j      *journal
	errs   []error
	series [][]float32
}

func (s *fakeSink) Stream(series []float32) error {
	s.j.calls = append(s.j.calls, "stream")
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return err
		}
	}
	s.series = append(s.series, append([]float32(nil), series...))
	return nil
}

type fakeSelector struct {
	j         *journal
	mode      xadc.ChannelMode
	avg       xadc.AveragingMode
	toggleErr error
	state     State
}

func (s *fakeSelector) Mode() xadc.ChannelMode { return s.mode }

func (s *fakeSelector) Decoder() xadc.Decoder { return xadc.DecoderFor(s.mode, s.avg) }

func (s *fakeSelector) Toggle() error {
	s.j.calls = append(s.j.calls, "toggle")
	s.state = s.j.loop.State()
	if s.toggleErr != nil {
		return s.toggleErr
	}
	s.mode = s.mode.Toggle()
	return nil
}

type fixture struct {
	j    *journal
	btn  *fakeButtons
	acq  *fakeAcquirer
	sink *fakeSink
	sel  *fakeSelector
	loop *Loop
}

func newFixture(t *testing.T, samples []xadc.RawSample) *fixture {
	t.Helper()
	j := &journal{}
	f := &fixture{
		j:    j,
		btn:  &fakeButtons{},
		acq:  &fakeAcquirer{j: j, samples: samples},
		sink: &fakeSink{j: j},
		sel:  &fakeSelector{j: j, mode: xadc.UnipolarAux, avg: xadc.Avg64},
	}
	loop, err := New(Deps{
		Buttons:   f.btn,
		Debouncer: button.NewDebouncer(true, 2),
		Selector:  f.sel,
		Acquirer:  f.acq,
		Sink:      f.sink,
	})
	require.NoError(t, err)
	j.loop = loop
	f.loop = loop
	return f
}

// press queues a debounced press and release of the buttons in mask.
func (f *fixture) press(mask uint8) {
	f.btn.readings = append(f.btn.readings, mask, mask, 0, 0)
}

func (f *fixture) run(t *testing.T) error {
	t.Helper()
	for len(f.btn.readings) > 0 {
		if err := f.loop.Tick(); err != nil {
			return err
		}
	}
	return nil
}

func TestLoop_CaptureAndStream(t *testing.T) {
	f := newFixture(t, []xadc.RawSample{0, 0x8000, 0xFFFF})
	f.press(0b01)

	require.NoError(t, f.run(t))

	assert.Equal(t, []string{"capture", "stream"}, f.j.calls)
	require.Len(t, f.sink.series, 1)
	assert.Equal(t, []float32{0, xadc.DecodeUnipolar(0x8000, xadc.Avg64), xadc.Scale}, f.sink.series[0])
	assert.Equal(t, Capturing, f.acq.state)
	assert.Equal(t, Idle, f.loop.State())
	assert.Equal(t, int64(1), f.loop.Captures())
	assert.Equal(t, int64(1), f.loop.Streamed())
}

func TestLoop_HeldButtonCapturesOnce(t *testing.T) {
	f := newFixture(t, []xadc.RawSample{1})
	for i := 0; i < 100; i++ {
		f.btn.readings = append(f.btn.readings, 0b01)
	}

	require.NoError(t, f.run(t))
	assert.Equal(t, int64(1), f.loop.Captures())
}

func TestLoop_CaptureFailureIsFatal(t *testing.T) {
	f := newFixture(t, nil)
	f.acq.err = acquire.ErrCaptureTimeout
	f.press(0b01)

	err := f.run(t)
	assert.ErrorIs(t, err, acquire.ErrCapture)
	assert.Equal(t, []string{"capture"}, f.j.calls, "nothing is streamed")
	assert.Equal(t, Idle, f.loop.State())
}

func TestLoop_StreamFailureKeepsRunning(t *testing.T) {
	f := newFixture(t, []xadc.RawSample{0x1000})
	f.sink.errs = []error{stream.ErrStream}
	f.press(0b01)

	require.NoError(t, f.run(t))
	assert.Equal(t, Idle, f.loop.State())
	assert.Empty(t, f.sink.series)
	assert.Equal(t, int64(0), f.loop.Streamed())

	f.press(0b01)
	require.NoError(t, f.run(t))
	assert.Len(t, f.sink.series, 1, "next press streams again")
}

func TestLoop_SwitchChannel(t *testing.T) {
	f := newFixture(t, nil)
	f.press(0b10)

	require.NoError(t, f.run(t))
	assert.Equal(t, []string{"toggle"}, f.j.calls)
	assert.Equal(t, xadc.BipolarDifferential, f.sel.mode)
	assert.Equal(t, SwitchingChannel, f.sel.state)
	assert.Equal(t, Idle, f.loop.State())
}

func TestLoop_SwitchFailureKeepsMode(t *testing.T) {
	f := newFixture(t, nil)
	f.sel.toggleErr = xadc.ErrHardwareConfig
	f.press(0b10)

	require.NoError(t, f.run(t))
	assert.Equal(t, xadc.UnipolarAux, f.sel.mode)
	assert.Equal(t, Idle, f.loop.State())
}

func TestLoop_BTN0BeforeBTN1(t *testing.T) {
	f := newFixture(t, []xadc.RawSample{0x8000})
	f.sel.mode = xadc.BipolarDifferential
	f.press(0b11)

	require.NoError(t, f.run(t))
	assert.Equal(t, []string{"capture", "stream", "toggle"}, f.j.calls)
	require.Len(t, f.sink.series, 1)
	assert.Equal(t, float32(-0.5), f.sink.series[0][0], "decoded with the mode active before the switch")
	assert.Equal(t, xadc.UnipolarAux, f.sel.mode)
}

func TestLoop_CaptureFailureSkipsSwitch(t *testing.T) {
	f := newFixture(t, nil)
	f.acq.err = acquire.ErrCaptureTimeout
	f.press(0b11)

	err := f.run(t)
	assert.ErrorIs(t, err, acquire.ErrCapture)
	assert.Equal(t, []string{"capture"}, f.j.calls)
	assert.Equal(t, xadc.UnipolarAux, f.sel.mode)
}

func TestLoop_PreviewPrecision(t *testing.T) {
	var out bytes.Buffer
	log.SetOutput(&out)
	defer log.SetOutput(os.Stderr)

	tests := []struct {
		name      string
		precision int
		want      string
	}{
		{name: "default", want: "VPVN: [0.07110596 -0.5]"},
		{name: "narrow", precision: 3, want: "VPVN: [0.0711 -0.5]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			j := &journal{}
			sel := &fakeSelector{j: j, mode: xadc.BipolarDifferential, avg: xadc.Avg64}
			acq := &fakeAcquirer{j: j, samples: []xadc.RawSample{0x1234, 0x8000}}
			loop, err := New(Deps{
				Buttons:   &fakeButtons{readings: []uint8{1, 1}},
				Debouncer: button.NewDebouncer(true, 2),
				Selector:  sel,
				Acquirer:  acq,
				Sink:      &fakeSink{j: j},
				Precision: tt.precision,
			})
			require.NoError(t, err)
			j.loop = loop

			require.NoError(t, loop.Tick())
			require.NoError(t, loop.Tick())
			assert.Contains(t, out.String(), tt.want)
		})
	}
}

func TestLoop_ButtonReadFailure(t *testing.T) {
	f := newFixture(t, nil)
	gone := errors.New("line released")
	f.btn.err = gone

	assert.ErrorIs(t, f.loop.Tick(), gone)
}

func TestLoop_RunStopsOnCancel(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.loop.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}

func TestLoop_RunReturnsFatalError(t *testing.T) {
	f := newFixture(t, nil)
	f.acq.err = acquire.ErrCapture
	f.press(0b01)

	err := f.loop.Run(context.Background())
	assert.ErrorIs(t, err, acquire.ErrCapture)
}

func TestNew_RequiresDeps(t *testing.T) {
	_, err := New(Deps{})
	assert.ErrorIs(t, err, ErrInit)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "capturing", Capturing.String())
	assert.Equal(t, "switching channel", SwitchingChannel.String())
}
