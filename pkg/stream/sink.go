// Package stream sends decoded series to the remote collector, one value
// per line, over a connection opened for that series only.
package stream

import (
	"bufio"
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/itohio/xadcstream/pkg/config"
)

// ErrStream is returned when a series could not be delivered.
var ErrStream = errors.New("stream failed")

// Sink delivers series to one endpoint.
type Sink struct {
	Dialer    Dialer
	Endpoint  Endpoint
	Precision int
}

// NewSink parses cfg.Endpoint and wires all transports.
func NewSink(cfg config.StreamConfig) (*Sink, error) {
	ep, err := ParseEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}
	return &Sink{
		Dialer:    NewDialer(cfg),
		Endpoint:  ep,
		Precision: cfg.Precision,
	}, nil
}

// Stream opens a connection, writes every value followed by '\n' and
// closes the connection on every path. A close failure is reported even
// if all values were written.
func (s *Sink) Stream(series []float32) (err error) {
	w, err := s.Dialer.Dial(s.Endpoint)
	if err != nil {
		return fmt.Errorf("%w: connect %v: %w", ErrStream, s.Endpoint, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("%w: close %v: %w", ErrStream, s.Endpoint, cerr))
		}
	}()

	bw := bufio.NewWriter(w)
	line := make([]byte, 0, 32)
	for i, v := range series {
		line = AppendVoltage(line[:0], v, s.Precision)
		line = append(line, '\n')
		if _, err := bw.Write(line); err != nil {
			return fmt.Errorf("%w: write value %d: %w", ErrStream, i, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("%w: flush: %w", ErrStream, err)
	}

	return nil
}
