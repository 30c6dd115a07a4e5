package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Buttons     ButtonsConfig     `yaml:"buttons"`
	Stream      StreamConfig      `yaml:"stream"`
	Hardware    HardwareConfig    `yaml:"hardware"`
	Sim         SimConfig         `yaml:"sim"`
}

// AcquisitionConfig contains capture parameters fixed for the process lifetime.
type AcquisitionConfig struct {
	SampleCount  int           `yaml:"sample_count"`  // Samples per DMA transfer (max 33,554,431)
	Averaging    string        `yaml:"averaging"`     // "none", "16", "64" or "256"
	PollInterval time.Duration `yaml:"poll_interval"` // Main loop tick and DMA busy poll interval
	DMATimeout   time.Duration `yaml:"dma_timeout"`   // 0 waits for the DMA engine forever
}

// ButtonsConfig contains debounce parameters.
type ButtonsConfig struct {
	ActiveLow bool `yaml:"active_low"` // true for pull-up wiring (pressed reads 0)
	Threshold int  `yaml:"threshold"`  // Consecutive consistent polls before a level is accepted
}

// StreamConfig contains the remote collector settings.
type StreamConfig struct {
	Endpoint     string        `yaml:"endpoint"` // tcp://host:port, serial:///dev/tty?baud=N or ws://host:port/path
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"` // 0 disables the deadline
	Precision    int           `yaml:"precision"`     // Significant digits per value
}

// HardwareConfig describes where the board peripherals are mapped.
type HardwareConfig struct {
	XADC   RegisterConfig `yaml:"xadc"`
	DMA    RegisterConfig `yaml:"dma"`
	Buffer string         `yaml:"buffer"` // u-dma-buf device name, e.g. udmabuf0
	GPIO   GPIOConfig     `yaml:"gpio"`
}

// RegisterConfig locates a memory-mapped register window.
type RegisterConfig struct {
	Device string `yaml:"device"` // /dev/uioN or /dev/mem
	Offset int64  `yaml:"offset"` // Physical address when Device is /dev/mem
	Size   int    `yaml:"size"`
}

// GPIOConfig contains the digital I/O line assignment.
type GPIOConfig struct {
	Backend   string `yaml:"backend"`    // "gpiocdev" or "periph"
	Chip      string `yaml:"chip"`       // gpiocdev chip name
	PinBase   int    `yaml:"pin_base"`   // periph: global number of chip offset 0
	Trigger   int    `yaml:"trigger"`    // Start line offset
	Buttons   [2]int `yaml:"buttons"`    // BTN0, BTN1 line offsets
	CountBase int    `yaml:"count_base"` // First sample count line offset
	CountBits int    `yaml:"count_bits"` // Width of the sample count field
}

// SimConfig contains simulated board parameters.
type SimConfig struct {
	Frequency     float64       `yaml:"frequency"`      // Test signal cycles per capture
	Amplitude     float64       `yaml:"amplitude"`      // Fraction of full scale (0..1)
	Noise         float64       `yaml:"noise"`          // Fraction of full scale
	TransferDelay time.Duration `yaml:"transfer_delay"` // Simulated DMA transfer time
	CaptureEvery  time.Duration `yaml:"capture_every"`  // Scripted BTN0 period
	SwitchEvery   int           `yaml:"switch_every"`   // Scripted BTN1 after this many captures (0 = never)
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Acquisition: AcquisitionConfig{
			SampleCount:  100,
			Averaging:    "64",
			PollInterval: time.Millisecond,
			DMATimeout:   0,
		},
		Buttons: ButtonsConfig{
			ActiveLow: false, // Cora Z7 buttons are pull-down
			Threshold: 4,
		},
		Stream: StreamConfig{
			Endpoint:     "tcp://192.168.44.10:65432",
			DialTimeout:  5 * time.Second,
			WriteTimeout: 0,
			Precision:    7,
		},
		Hardware: HardwareConfig{
			XADC:   RegisterConfig{Device: "/dev/uio0", Size: 0x10000},
			DMA:    RegisterConfig{Device: "/dev/uio1", Size: 0x10000},
			Buffer: "udmabuf0",
			GPIO: GPIOConfig{
				Backend:   "gpiocdev",
				Chip:      "gpiochip0",
				PinBase:   906,
				Trigger:   54,
				Buttons:   [2]int{81, 82},
				CountBase: 55,
				CountBits: 25,
			},
		},
		Sim: SimConfig{
			Frequency:     2,
			Amplitude:     0.8,
			Noise:         0.002,
			TransferDelay: 3 * time.Millisecond,
			CaptureEvery:  2 * time.Second,
			SwitchEvery:   3,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			// File doesn't exist, return defaults
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Acquisition.SampleCount == 0 {
		c.Acquisition.SampleCount = def.Acquisition.SampleCount
	}
	if c.Acquisition.Averaging == "" {
		c.Acquisition.Averaging = def.Acquisition.Averaging
	}
	if c.Acquisition.PollInterval == 0 {
		c.Acquisition.PollInterval = def.Acquisition.PollInterval
	}

	if c.Buttons.Threshold == 0 {
		c.Buttons.Threshold = def.Buttons.Threshold
	}

	if c.Stream.Endpoint == "" {
		c.Stream.Endpoint = def.Stream.Endpoint
	}
	if c.Stream.DialTimeout == 0 {
		c.Stream.DialTimeout = def.Stream.DialTimeout
	}
	if c.Stream.Precision == 0 {
		c.Stream.Precision = def.Stream.Precision
	}

	if c.Hardware.XADC.Device == "" {
		c.Hardware.XADC = def.Hardware.XADC
	}
	if c.Hardware.DMA.Device == "" {
		c.Hardware.DMA = def.Hardware.DMA
	}
	if c.Hardware.Buffer == "" {
		c.Hardware.Buffer = def.Hardware.Buffer
	}
	if c.Hardware.GPIO.Backend == "" {
		c.Hardware.GPIO.Backend = def.Hardware.GPIO.Backend
	}
	if c.Hardware.GPIO.Chip == "" {
		c.Hardware.GPIO.Chip = def.Hardware.GPIO.Chip
	}

	if c.Sim.Frequency == 0 {
		c.Sim.Frequency = def.Sim.Frequency
	}
	if c.Sim.Amplitude == 0 {
		c.Sim.Amplitude = def.Sim.Amplitude
	}
	if c.Sim.TransferDelay == 0 {
		c.Sim.TransferDelay = def.Sim.TransferDelay
	}
	if c.Sim.CaptureEvery == 0 {
		c.Sim.CaptureEvery = def.Sim.CaptureEvery
	}
}
