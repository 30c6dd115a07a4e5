package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/itohio/xadcstream/pkg/acquire"
	"github.com/itohio/xadcstream/pkg/button"
	"github.com/itohio/xadcstream/pkg/config"
	"github.com/itohio/xadcstream/pkg/dma"
	"github.com/itohio/xadcstream/pkg/gpio"
	"github.com/itohio/xadcstream/pkg/pipeline"
	"github.com/itohio/xadcstream/pkg/sim"
	"github.com/itohio/xadcstream/pkg/stream"
	"github.com/itohio/xadcstream/pkg/xadc"
)

func main() {
	var (
		configFlag      = flag.String("config", "config.yaml", "Configuration file path")
		simFlag         = flag.Bool("sim", false, "Use the simulated board instead of hardware")
		endpointFlag    = flag.String("endpoint", "", "Collector endpoint override (e.g., tcp://192.168.44.10:65432)")
		samplesFlag     = flag.Int("samples", 0, "Samples per transfer (overrides config)")
		averagingFlag   = flag.String("averaging", "", "Averaging: none, 16, 64 or 256 (overrides config)")
		writeConfigFlag = flag.Bool("write-config", false, "Write the effective configuration to -config and exit")
	)
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if *endpointFlag != "" {
		cfg.Stream.Endpoint = *endpointFlag
	}
	if *samplesFlag > 0 {
		cfg.Acquisition.SampleCount = *samplesFlag
	}
	if *averagingFlag != "" {
		cfg.Acquisition.Averaging = *averagingFlag
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *writeConfigFlag {
		if err := cfg.Save(*configFlag); err != nil {
			log.Fatalf("Failed to save configuration: %v", err)
		}
		log.Printf("Configuration written to %s", *configFlag)
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, cfg, *simFlag)
	stop()
	if err != nil {
		log.Printf("%v", err)
		os.Exit(1)
	}
	log.Printf("Stopped")
}

// board is the set of peripherals the loop runs on.
type board struct {
	conv   xadc.Configurator
	engine dma.Engine
	cache  dma.Cache
	port   gpio.Port
	buf    *dma.Buffer
	close  func() error
}

func newSimBoard(cfg *config.Config) *board {
	b := sim.New(cfg, true)
	return &board{
		conv:   b.Converter,
		engine: b.DMA,
		cache:  b.Cache,
		port:   b.GPIO,
		buf:    dma.NewBuffer(cfg.Acquisition.SampleCount),
		close:  b.Close,
	}
}

func run(ctx context.Context, cfg *config.Config, useSim bool) error {
	avg, err := xadc.ParseAveraging(cfg.Acquisition.Averaging)
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrInit, err)
	}

	sink, err := stream.NewSink(cfg.Stream)
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrInit, err)
	}

	var b *board
	if useSim {
		log.Printf("Using simulated board")
		b = newSimBoard(cfg)
	} else {
		b, err = openHardware(cfg)
		if err != nil {
			return fmt.Errorf("%w: %w", pipeline.ErrInit, err)
		}
	}
	defer func() {
		if cerr := b.close(); cerr != nil {
			log.Printf("Error closing board: %v", cerr)
		}
	}()

	sel, err := pipeline.Init(b.conv, b.port, avg, cfg.Acquisition.SampleCount)
	if err != nil {
		return err
	}

	acq, err := acquire.New(acquire.Config{
		SampleCount:  cfg.Acquisition.SampleCount,
		PollInterval: cfg.Acquisition.PollInterval,
		Timeout:      cfg.Acquisition.DMATimeout,
	}, b.engine, b.cache, b.port, b.buf)
	if err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrInit, err)
	}

	pipeline.Banner(sink.Endpoint.String(), acq.SampleCount(), sel.Averaging())

	loop, err := pipeline.New(pipeline.Deps{
		Buttons:      b.port,
		Debouncer:    button.NewDebouncer(!cfg.Buttons.ActiveLow, cfg.Buttons.Threshold),
		Selector:     sel,
		Acquirer:     acq,
		Sink:         sink,
		PollInterval: cfg.Acquisition.PollInterval,
		Precision:    cfg.Stream.Precision,
	})
	if err != nil {
		return err
	}

	log.Printf("Press BTN0 to capture, BTN1 to switch input")
	if err := loop.Run(ctx); err != nil {
		if errors.Is(err, acquire.ErrCapture) {
			return fmt.Errorf("acquisition stopped after %d captures: %w", loop.Captures(), err)
		}
		return err
	}

	return nil
}
