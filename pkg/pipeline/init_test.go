package pipeline

import (
	"bufio"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/xadcstream/pkg/acquire"
	"github.com/itohio/xadcstream/pkg/button"
	"github.com/itohio/xadcstream/pkg/config"
	"github.com/itohio/xadcstream/pkg/dma"
	"github.com/itohio/xadcstream/pkg/sim"
	"github.com/itohio/xadcstream/pkg/stream"
	"github.com/itohio/xadcstream/pkg/xadc"
)

func TestInit_SimBoard(t *testing.T) {
	b := sim.New(config.Default(), false)
	defer b.Close()

	var writes []uint32
	b.Regs.OnWrite = func(offset, _ uint32) { writes = append(writes, offset) }

	sel, err := Init(b.Converter, b.GPIO, xadc.Avg64, 100)
	require.NoError(t, err)

	require.NotEmpty(t, writes)
	assert.Equal(t, uint32(xadc.RegSoftReset), writes[0], "converter reset first")
	assert.Equal(t, xadc.UnipolarAux, sel.Mode())
	assert.Equal(t, xadc.Avg64, sel.Averaging())
	assert.Equal(t, 100, b.GPIO.SampleCount())

	cfr0 := b.Regs.Read32(xadc.RegCFR0)
	assert.Equal(t, uint32(xadc.ChannelVAux1), cfr0&xadc.CFR0ChannelMask)
	assert.Zero(t, cfr0&xadc.CFR0Bipolar)
	assert.Equal(t, uint32(xadc.Avg64), (cfr0&xadc.CFR0AvgMask)>>xadc.CFR0AvgShift)
}

type failingConverter struct {
	initErr, setErr error
}

func (c *failingConverter) Init(xadc.AveragingMode) error { return c.initErr }
func (c *failingConverter) SetSingleChannel(xadc.ChannelParams) error { return c.setErr }
func (c *failingConverter) Calibration() (xadc.Calibration, error) { return xadc.Calibration{}, nil }

type failingCounter struct{ err error }

func (c failingCounter) SetSampleCount(int) error { return c.err }

func TestInit_Failures(t *testing.T) {
	boom := errors.New("boom")

	_, err := Init(&failingConverter{initErr: boom}, failingCounter{}, xadc.Avg64, 100)
	assert.ErrorIs(t, err, ErrInit)
	assert.ErrorIs(t, err, boom)

	_, err = Init(&failingConverter{}, failingCounter{err: boom}, xadc.Avg64, 100)
	assert.ErrorIs(t, err, ErrInit)

	_, err = Init(&failingConverter{setErr: boom}, failingCounter{}, xadc.Avg64, 100)
	assert.ErrorIs(t, err, ErrInit)
	assert.ErrorIs(t, err, xadc.ErrHardwareConfig)
}

// TestLoop_SimEndToEnd runs the whole chain on the simulated board and
// collects the streamed lines over TCP.
func TestLoop_SimEndToEnd(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	lines := make(chan []string, 4)
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			var got []string
			sc := bufio.NewScanner(conn)
			for sc.Scan() {
				got = append(got, sc.Text())
			}
			conn.Close()
			lines <- got
		}
	}()

	cfg := config.Default()
	cfg.Acquisition.SampleCount = 100
	cfg.Sim.TransferDelay = time.Millisecond
	cfg.Stream.Endpoint = "tcp://" + ln.Addr().String()
	cfg.Stream.DialTimeout = time.Second

	b := sim.New(cfg, false)
	defer b.Close()

	sel, err := Init(b.Converter, b.GPIO, xadc.Avg64, cfg.Acquisition.SampleCount)
	require.NoError(t, err)

	acq, err := acquire.New(acquire.Config{
		SampleCount:  cfg.Acquisition.SampleCount,
		PollInterval: time.Millisecond,
		Timeout:      time.Second,
	}, b.DMA, b.Cache, b.GPIO, dma.NewBuffer(cfg.Acquisition.SampleCount))
	require.NoError(t, err)

	sink, err := stream.NewSink(cfg.Stream)
	require.NoError(t, err)

	loop, err := New(Deps{
		Buttons:   b.GPIO,
		Debouncer: button.NewDebouncer(true, 2),
		Selector:  sel,
		Acquirer:  acq,
		Sink:      sink,
	})
	require.NoError(t, err)

	tick := func(pressed uint8, n int) {
		b.GPIO.SetPressed(pressed)
		for i := 0; i < n; i++ {
			require.NoError(t, loop.Tick())
		}
	}

	// Capture VAUX1, switch to VP/VN, capture again.
	tick(0b01, 3)
	tick(0b00, 3)
	tick(0b10, 3)
	tick(0b00, 3)
	tick(0b01, 3)
	tick(0b00, 3)

	assert.Equal(t, xadc.BipolarDifferential, sel.Mode())

	for i, check := range []func(v float64) bool{
		func(v float64) bool { return v >= 0 && v <= float64(xadc.Scale) },
		func(v float64) bool { return v >= -0.5 && v < 0.5 },
	} {
		select {
		case got := <-lines:
			require.Len(t, got, 100, "capture %d", i)
			for _, s := range got {
				v, err := strconv.ParseFloat(s, 32)
				require.NoError(t, err)
				assert.True(t, check(v), "capture %d value %s", i, s)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("capture %d not received", i)
		}
	}

	flushes, invalidates := b.Cache.Counts()
	assert.Equal(t, 2, flushes)
	assert.Equal(t, 2, invalidates)
	assert.Equal(t, int64(2), loop.Streamed())
}
