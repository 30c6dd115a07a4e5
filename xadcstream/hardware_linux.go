//go:build linux

package main

import (
	"fmt"
	"io"

	"go.uber.org/multierr"

	"github.com/itohio/xadcstream/pkg/config"
	"github.com/itohio/xadcstream/pkg/dma"
	"github.com/itohio/xadcstream/pkg/gpio"
	"github.com/itohio/xadcstream/pkg/uio"
	"github.com/itohio/xadcstream/pkg/xadc"
)

// openHardware maps the converter and DMA register windows, the u-dma-buf
// sample buffer and the GPIO lines.
func openHardware(cfg *config.Config) (b *board, err error) {
	hw := cfg.Hardware
	var closers []io.Closer
	defer func() {
		if err != nil {
			err = multierr.Append(err, closeAll(closers))
		}
	}()

	xadcRegs, err := uio.Open(hw.XADC.Device, hw.XADC.Offset, hw.XADC.Size)
	if err != nil {
		return nil, err
	}
	closers = append(closers, xadcRegs)

	dmaRegs, err := uio.Open(hw.DMA.Device, hw.DMA.Offset, hw.DMA.Size)
	if err != nil {
		return nil, err
	}
	closers = append(closers, dmaRegs)

	engine := dma.NewAXI(dmaRegs)
	if err := engine.Reset(); err != nil {
		return nil, err
	}

	buf, err := dma.OpenUDMABuf(hw.Buffer, cfg.Acquisition.SampleCount)
	if err != nil {
		return nil, err
	}
	closers = append(closers, buf)

	port, err := openGPIO(hw.GPIO)
	if err != nil {
		return nil, err
	}
	closers = append(closers, port)

	return &board{
		conv:   xadc.NewDevice(xadcRegs),
		engine: engine,
		cache:  buf,
		port:   port,
		buf:    buf.Buffer(),
		close:  func() error { return closeAll(closers) },
	}, nil
}

func openGPIO(cfg config.GPIOConfig) (gpio.Port, error) {
	switch cfg.Backend {
	case "gpiocdev":
		return gpio.OpenCdev(cfg)
	case "periph":
		return gpio.OpenPeriph(cfg)
	default:
		return nil, fmt.Errorf("unknown gpio backend %q", cfg.Backend)
	}
}

// closeAll closes in reverse order of opening.
func closeAll(closers []io.Closer) error {
	var err error
	for i := len(closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, closers[i].Close())
	}
	return err
}
