package stream

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"go.uber.org/multierr"

	"github.com/itohio/xadcstream/pkg/config"
)

// Dialer opens one connection to the collector.
type Dialer interface {
	Dial(ep Endpoint) (io.WriteCloser, error)
}

// TCP dials plain TCP connections.
type TCP struct {
	Timeout      time.Duration
	WriteTimeout time.Duration // 0 disables the deadline
}

// Dial implements Dialer.
func (d TCP) Dial(ep Endpoint) (io.WriteCloser, error) {
	conn, err := net.DialTimeout("tcp", ep.Address, d.Timeout)
	if err != nil {
		return nil, err
	}
	if d.WriteTimeout > 0 {
		if err := conn.SetWriteDeadline(time.Now().Add(d.WriteTimeout)); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

// Serial opens a serial port per series.
type Serial struct{}

// Dial implements Dialer.
func (Serial) Dial(ep Endpoint) (io.WriteCloser, error) {
	port, err := serial.Open(ep.Address, &serial.Mode{BaudRate: ep.Baud})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", ep.Address, err)
	}
	return port, nil
}

// WebSocket sends each series as one text message.
type WebSocket struct {
	Timeout      time.Duration
	WriteTimeout time.Duration
}

// Dial implements Dialer.
func (d WebSocket) Dial(ep Endpoint) (io.WriteCloser, error) {
	dialer := websocket.Dialer{HandshakeTimeout: d.Timeout}
	conn, _, err := dialer.Dial(ep.Address, nil)
	if err != nil {
		return nil, err
	}
	return &wsWriter{conn: conn, writeTimeout: d.WriteTimeout}, nil
}

// wsWriter buffers the series and sends it as one message on Close.
type wsWriter struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	buf          bytes.Buffer
}

func (w *wsWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *wsWriter) Close() error {
	if w.writeTimeout > 0 {
		w.conn.SetWriteDeadline(time.Now().Add(w.writeTimeout))
	}
	err := w.conn.WriteMessage(websocket.TextMessage, w.buf.Bytes())
	if err == nil {
		err = w.conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	}
	return multierr.Append(err, w.conn.Close())
}

// Mux picks a transport by endpoint scheme.
type Mux struct {
	TCP       Dialer
	Serial    Dialer
	WebSocket Dialer
}

var _ Dialer = (*Mux)(nil)

// NewDialer builds a Mux with all transports configured from cfg.
func NewDialer(cfg config.StreamConfig) *Mux {
	return &Mux{
		TCP:       TCP{Timeout: cfg.DialTimeout, WriteTimeout: cfg.WriteTimeout},
		Serial:    Serial{},
		WebSocket: WebSocket{Timeout: cfg.DialTimeout, WriteTimeout: cfg.WriteTimeout},
	}
}

// Dial implements Dialer.
func (m *Mux) Dial(ep Endpoint) (io.WriteCloser, error) {
	var d Dialer
	switch ep.Scheme {
	case SchemeTCP:
		d = m.TCP
	case SchemeSerial:
		d = m.Serial
	case SchemeWebSocket, SchemeWSS:
		d = m.WebSocket
	}
	if d == nil {
		return nil, fmt.Errorf("no transport for scheme %q", ep.Scheme)
	}
	return d.Dial(ep)
}
