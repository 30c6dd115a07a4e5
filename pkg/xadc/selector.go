package xadc

import (
	"errors"
	"fmt"
	"log"
)

// Selector owns the active channel mode and the decoder bound to it.
type Selector struct {
	conv    Configurator
	avg     AveragingMode
	mode    ChannelMode
	decoder Decoder
}

// NewSelector creates a selector. No channel is configured until Activate
// is called; until then Mode reports UnipolarAux.
func NewSelector(conv Configurator, avg AveragingMode) *Selector {
	return &Selector{
		conv:    conv,
		avg:     avg,
		mode:    UnipolarAux,
		decoder: DecoderFor(UnipolarAux, avg),
	}
}

// Mode returns the active channel mode.
func (s *Selector) Mode() ChannelMode {
	return s.mode
}

// Averaging returns the averaging mode the decoders are bound to.
func (s *Selector) Averaging() AveragingMode {
	return s.avg
}

// Decoder returns the decode function of the active channel mode.
func (s *Selector) Decoder() Decoder {
	return s.decoder
}

// Activate configures the converter for mode. The new mode is committed
// only if the converter accepts it; otherwise the previous mode stays
// active and an error wrapping ErrHardwareConfig is returned.
func (s *Selector) Activate(mode ChannelMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: unknown input %v", ErrHardwareConfig, mode)
	}

	if err := s.conv.SetSingleChannel(Params(mode)); err != nil {
		return fmt.Errorf("activate %v: %w", mode, wrapHardwareConfig(err))
	}

	s.mode = mode
	s.decoder = DecoderFor(mode, s.avg)
	log.Printf("%v is activated as the input", mode)

	return nil
}

// Toggle activates the other channel mode.
func (s *Selector) Toggle() error {
	return s.Activate(s.mode.Toggle())
}

func wrapHardwareConfig(err error) error {
	if errors.Is(err, ErrHardwareConfig) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrHardwareConfig, err)
}
