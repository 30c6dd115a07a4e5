package pipeline

import (
	"fmt"
	"log"

	"github.com/itohio/xadcstream/pkg/xadc"
)

// SampleCounter drives the sample count lines.
type SampleCounter interface {
	SetSampleCount(n int) error
}

// Banner logs the run parameters.
func Banner(endpoint string, sampleCount int, avg xadc.AveragingMode) {
	log.Printf("XADC streaming to %s", endpoint)
	log.Printf("%d samples per transfer, %s averaging", sampleCount, avg.Description())
}

// LogCalibration logs the converter calibration coefficients.
func LogCalibration(cal xadc.Calibration) {
	log.Printf("ADC offset coefficient 0x%04X: %d LSB", cal.OffsetRaw, cal.Offset())
	if cal.InternalReference() {
		log.Printf("ADC gain coefficient 0x%04X: internal reference, gain calibration disabled", cal.GainRaw)
		return
	}
	log.Printf("ADC gain coefficient 0x%04X: %.1f%%", cal.GainRaw, cal.GainPercent())
}

// Init resets the converter when it supports it, configures it for avg,
// writes the sample count and activates VAUX1. Every failure wraps ErrInit.
func Init(conv xadc.Configurator, counter SampleCounter, avg xadc.AveragingMode, sampleCount int) (*xadc.Selector, error) {
	if r, ok := conv.(interface{ Reset() }); ok {
		r.Reset()
	}
	if err := conv.Init(avg); err != nil {
		return nil, fmt.Errorf("%w: converter: %w", ErrInit, err)
	}

	cal, err := conv.Calibration()
	if err != nil {
		return nil, fmt.Errorf("%w: calibration: %w", ErrInit, err)
	}
	LogCalibration(cal)

	if err := counter.SetSampleCount(sampleCount); err != nil {
		return nil, fmt.Errorf("%w: sample count: %w", ErrInit, err)
	}

	sel := xadc.NewSelector(conv, avg)
	if err := sel.Activate(xadc.UnipolarAux); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInit, err)
	}

	return sel, nil
}
