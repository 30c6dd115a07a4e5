package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, 100, cfg.Acquisition.SampleCount)
	assert.Equal(t, "64", cfg.Acquisition.Averaging)
	assert.Equal(t, time.Millisecond, cfg.Acquisition.PollInterval)
	assert.Equal(t, time.Duration(0), cfg.Acquisition.DMATimeout)
	assert.False(t, cfg.Buttons.ActiveLow)
	assert.Equal(t, 4, cfg.Buttons.Threshold)
	assert.Equal(t, "tcp://192.168.44.10:65432", cfg.Stream.Endpoint)
	assert.Equal(t, 7, cfg.Stream.Precision)
	assert.Equal(t, 54, cfg.Hardware.GPIO.Trigger)
	assert.Equal(t, [2]int{81, 82}, cfg.Hardware.GPIO.Buttons)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, 100, cfg.Acquisition.SampleCount)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
acquisition:
  sample_count: 4096
  averaging: none
  poll_interval: 2ms
  dma_timeout: 500ms

buttons:
  active_low: true
  threshold: 8

stream:
  endpoint: "ws://10.0.0.2:8080/xadc"
  precision: 5

hardware:
  gpio:
    backend: periph
    pin_base: 0
    trigger: 10
    buttons: [11, 12]
    count_base: 13
    count_bits: 16
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, 4096, cfg.Acquisition.SampleCount)
	assert.Equal(t, "none", cfg.Acquisition.Averaging)
	assert.Equal(t, 2*time.Millisecond, cfg.Acquisition.PollInterval)
	assert.Equal(t, 500*time.Millisecond, cfg.Acquisition.DMATimeout)
	assert.True(t, cfg.Buttons.ActiveLow)
	assert.Equal(t, 8, cfg.Buttons.Threshold)
	assert.Equal(t, "ws://10.0.0.2:8080/xadc", cfg.Stream.Endpoint)
	assert.Equal(t, 5, cfg.Stream.Precision)
	assert.Equal(t, "periph", cfg.Hardware.GPIO.Backend)
	assert.Equal(t, 0, cfg.Hardware.GPIO.PinBase)
	assert.Equal(t, 10, cfg.Hardware.GPIO.Trigger)
	assert.Equal(t, [2]int{11, 12}, cfg.Hardware.GPIO.Buttons)
	assert.Equal(t, 16, cfg.Hardware.GPIO.CountBits)
	assert.NoError(t, Validate(cfg))
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
stream:
  endpoint: "tcp://127.0.0.1:9000"
acquisition:
  sample_count: 0
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, "tcp://127.0.0.1:9000", cfg.Stream.Endpoint)
	assert.Equal(t, 100, cfg.Acquisition.SampleCount) // default
	assert.Equal(t, "64", cfg.Acquisition.Averaging)  // default
	assert.Equal(t, 25, cfg.Hardware.GPIO.CountBits)  // default
}

func TestLoad_NoCountLines(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
hardware:
  gpio:
    trigger: 5
    buttons: [1, 2]
    count_bits: 0
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Hardware.GPIO.CountBits)
	assert.Equal(t, 5, cfg.Hardware.GPIO.Trigger)
	assert.Equal(t, [2]int{1, 2}, cfg.Hardware.GPIO.Buttons)
	assert.Equal(t, 906, cfg.Hardware.GPIO.PinBase)        // default
	assert.Equal(t, "gpiocdev", cfg.Hardware.GPIO.Backend) // default
	assert.NoError(t, Validate(cfg))
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Acquisition.SampleCount = 1000
	cfg.Stream.Endpoint = "serial:///dev/ttyPS0?baud=921600"

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, 1000, loaded.Acquisition.SampleCount)
	assert.Equal(t, "serial:///dev/ttyPS0?baud=921600", loaded.Stream.Endpoint)
}
