// Package xadc models the Xilinx 7-series XADC as seen by the acquisition
// loop: raw sample encodings, averaging modes, the two analog inputs we
// switch between and the register-level configuration of the converter.
package xadc

import (
	"fmt"
	"strings"
)

// RawSample is one 16-bit conversion result as written by the converter.
// Without averaging only the 12 most significant bits are valid.
type RawSample = uint16

// ChannelMode selects which analog input is sampled and how it is encoded.
type ChannelMode int

const (
	// UnipolarAux is VAUX1 in unipolar mode (0 V to Scale).
	UnipolarAux ChannelMode = iota
	// BipolarDifferential is the dedicated VP/VN pair in bipolar mode (-0.5 V to 0.5 V).
	BipolarDifferential
)

// Toggle returns the other channel mode.
func (m ChannelMode) Toggle() ChannelMode {
	if m == UnipolarAux {
		return BipolarDifferential
	}
	return UnipolarAux
}

// Valid reports whether m is one of the defined modes.
func (m ChannelMode) Valid() bool {
	return m == UnipolarAux || m == BipolarDifferential
}

func (m ChannelMode) String() string {
	switch m {
	case UnipolarAux:
		return "VAUX1"
	case BipolarDifferential:
		return "VPVN"
	default:
		return fmt.Sprintf("ChannelMode(%d)", int(m))
	}
}

// AveragingMode is the converter's averaging setting. The values match the
// AVG field encoding of configuration register 0.
type AveragingMode uint8

const (
	AvgNone AveragingMode = iota
	Avg16
	Avg64
	Avg256
)

// ValidBits returns how many most significant bits of a RawSample carry the
// conversion result.
func (a AveragingMode) ValidBits() uint {
	if a == AvgNone {
		return 12
	}
	return 16
}

// Description is the human readable averaging setting, e.g. "64 samples".
func (a AveragingMode) Description() string {
	switch a {
	case AvgNone:
		return "no"
	case Avg16:
		return "16 samples"
	case Avg64:
		return "64 samples"
	case Avg256:
		return "256 samples"
	default:
		return fmt.Sprintf("AveragingMode(%d)", uint8(a))
	}
}

func (a AveragingMode) String() string {
	return a.Description() + " averaging"
}

// ParseAveraging converts the configuration spelling ("none", "16", "64",
// "256") into an AveragingMode.
func ParseAveraging(s string) (AveragingMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "0", "off":
		return AvgNone, nil
	case "16":
		return Avg16, nil
	case "64":
		return Avg64, nil
	case "256":
		return Avg256, nil
	}
	return 0, fmt.Errorf("unknown averaging mode %q", s)
}

// Converter channel numbers (CFR0 CH field).
const (
	ChannelVPVN   = 3
	ChannelAuxMin = 16
	ChannelVAux1  = ChannelAuxMin + 1
)

// ChannelParams is the single-channel configuration written to the converter.
type ChannelParams struct {
	Channel      uint8
	IncreaseAcq  bool // 10 ADCCLK acquisition instead of 4
	EventMode    bool // false samples continuously
	Differential bool // bipolar input
}

// Params maps a channel mode to the converter's single-channel parameters.
func Params(mode ChannelMode) ChannelParams {
	if mode == BipolarDifferential {
		return ChannelParams{Channel: ChannelVPVN, Differential: true}
	}
	return ChannelParams{Channel: ChannelVAux1}
}
