package xadc

import (
	"errors"
	"fmt"

	"github.com/itohio/xadcstream/pkg/uio"
)

// Configurator is the converter configuration collaborator.
type Configurator interface {
	// Init applies the one-time setup: interrupts off, single channel
	// sequencer, alarms off, averaging and calibration enables.
	Init(avg AveragingMode) error
	// SetSingleChannel selects the input sampled in single channel mode.
	SetSingleChannel(p ChannelParams) error
	// Calibration reads the calibration coefficient registers.
	Calibration() (Calibration, error)
}

// XADC Wizard AXI register map.
const (
	RegSoftReset   = 0x000
	RegGIER        = 0x05C
	RegOffsetCoeff = 0x224 // ADC offset calibration coefficient
	RegGainCoeff   = 0x228 // ADC gain error calibration coefficient
	RegCFR0        = 0x300
	RegCFR1        = 0x304
	RegCFR2        = 0x308
)

// Configuration register 0 fields.
const (
	CFR0ChannelMask = 0x001F
	CFR0Acq         = 0x0100
	CFR0EventMode   = 0x0200
	CFR0Bipolar     = 0x0400
	CFR0AvgMask     = 0x3000
	CFR0AvgShift    = 12
	CFR0CalAvg      = 0x8000 // set disables averaging of calibration readings
)

// Configuration register 1 fields.
const (
	CFR1AlarmMask      = 0x0F0F // set bits disable the alarms
	CFR1CalADCOffset   = 0x0010
	CFR1CalADCGainOff  = 0x0020
	CFR1CalPSOffset    = 0x0040
	CFR1CalPSGainOff   = 0x0080
	CFR1CalMask        = 0x00F0
	CFR1SeqMask        = 0xF000
	CFR1SeqShift       = 12
	SeqModeSingleChan  = 3
	maxChannel         = 0x1F
	softResetMagicWord = 0x0A
)

// ErrHardwareConfig is returned when the converter rejects a configuration.
var ErrHardwareConfig = errors.New("xadc: hardware configuration failed")

// Device configures the XADC through its AXI register window.
type Device struct {
	regs uio.Registers
}

var _ Configurator = (*Device)(nil)

// NewDevice creates a Device over a mapped register window.
func NewDevice(regs uio.Registers) *Device {
	return &Device{regs: regs}
}

// Reset issues a software reset of the converter.
func (d *Device) Reset() {
	d.regs.Write32(RegSoftReset, softResetMagicWord)
}

// Init implements Configurator.
func (d *Device) Init(avg AveragingMode) error {
	if avg > Avg256 {
		return fmt.Errorf("%w: invalid averaging mode %d", ErrHardwareConfig, avg)
	}

	// Disable all interrupts
	d.regs.Write32(RegGIER, 0)

	// Single channel sequencer, all alarms disabled
	cfr1 := d.regs.Read32(RegCFR1)
	cfr1 = cfr1&^CFR1SeqMask | SeqModeSingleChan<<CFR1SeqShift
	cfr1 |= CFR1AlarmMask

	// Averaging for conversions, none for calibration readings
	cfr0 := d.regs.Read32(RegCFR0)
	cfr0 = cfr0&^CFR0AvgMask | uint32(avg)<<CFR0AvgShift
	cfr0 |= CFR0CalAvg
	d.regs.Write32(RegCFR0, cfr0)

	// With the internal reference the gain coefficient is meaningless.
	cal, err := d.Calibration()
	if err != nil {
		return err
	}
	cfr1 &^= CFR1CalMask
	if cal.InternalReference() {
		cfr1 |= CFR1CalADCOffset | CFR1CalPSOffset
	} else {
		cfr1 |= CFR1CalADCGainOff | CFR1CalPSGainOff
	}
	d.regs.Write32(RegCFR1, cfr1)

	if got := d.regs.Read32(RegCFR1); got&CFR1SeqMask != cfr1&CFR1SeqMask {
		return fmt.Errorf("%w: sequencer mode readback 0x%04X, want 0x%04X", ErrHardwareConfig, got, cfr1)
	}
	if got := d.regs.Read32(RegCFR0); got&CFR0AvgMask != cfr0&CFR0AvgMask {
		return fmt.Errorf("%w: averaging readback 0x%04X, want 0x%04X", ErrHardwareConfig, got, cfr0)
	}

	return nil
}

// SetSingleChannel implements Configurator. The sequencer must already be
// in single channel mode.
func (d *Device) SetSingleChannel(p ChannelParams) error {
	if p.Channel > maxChannel {
		return fmt.Errorf("%w: channel %d out of range", ErrHardwareConfig, p.Channel)
	}

	seq := (d.regs.Read32(RegCFR1) & CFR1SeqMask) >> CFR1SeqShift
	if seq != SeqModeSingleChan {
		return fmt.Errorf("%w: sequencer mode %d is not single channel", ErrHardwareConfig, seq)
	}

	cfr0 := d.regs.Read32(RegCFR0)
	cfr0 &^= CFR0ChannelMask | CFR0Acq | CFR0EventMode | CFR0Bipolar
	cfr0 |= uint32(p.Channel)
	if p.IncreaseAcq {
		cfr0 |= CFR0Acq
	}
	if p.EventMode {
		cfr0 |= CFR0EventMode
	}
	if p.Differential {
		cfr0 |= CFR0Bipolar
	}
	d.regs.Write32(RegCFR0, cfr0)

	return nil
}

// Calibration implements Configurator.
func (d *Device) Calibration() (Calibration, error) {
	return Calibration{
		OffsetRaw: uint16(d.regs.Read32(RegOffsetCoeff)),
		GainRaw:   uint16(d.regs.Read32(RegGainCoeff)),
	}, nil
}
