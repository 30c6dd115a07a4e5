package stream

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Transport schemes accepted by ParseEndpoint.
const (
	SchemeTCP       = "tcp"
	SchemeSerial    = "serial"
	SchemeWebSocket = "ws"
	SchemeWSS       = "wss"
)

// DefaultBaudRate is used for serial endpoints without a baud parameter.
const DefaultBaudRate = 115200

// Endpoint is a parsed collector address.
type Endpoint struct {
	Scheme  string
	Address string // host:port, device path or websocket URL
	Baud    int    // serial only
	raw     string
}

func (e Endpoint) String() string {
	if e.raw != "" {
		return e.raw
	}
	return e.Scheme + "://" + e.Address
}

// ParseEndpoint parses tcp://host:port, host:port, serial:///dev/tty?baud=N
// or ws://host:port/path.
func ParseEndpoint(s string) (Endpoint, error) {
	if s == "" {
		return Endpoint{}, fmt.Errorf("stream: empty endpoint")
	}
	if !strings.Contains(s, "://") {
		s = SchemeTCP + "://" + s
	}

	u, err := url.Parse(s)
	if err != nil {
		return Endpoint{}, fmt.Errorf("stream: invalid endpoint %q: %w", s, err)
	}

	ep := Endpoint{Scheme: u.Scheme, raw: s}
	switch u.Scheme {
	case SchemeTCP:
		if u.Host == "" || u.Port() == "" {
			return Endpoint{}, fmt.Errorf("stream: endpoint %q needs host:port", s)
		}
		ep.Address = u.Host
	case SchemeSerial:
		if u.Path == "" {
			return Endpoint{}, fmt.Errorf("stream: endpoint %q needs a device path", s)
		}
		ep.Address = u.Path
		ep.Baud = DefaultBaudRate
		if b := u.Query().Get("baud"); b != "" {
			ep.Baud, err = strconv.Atoi(b)
			if err != nil || ep.Baud <= 0 {
				return Endpoint{}, fmt.Errorf("stream: invalid baud rate %q", b)
			}
		}
	case SchemeWebSocket, SchemeWSS:
		if u.Host == "" {
			return Endpoint{}, fmt.Errorf("stream: endpoint %q needs a host", s)
		}
		ep.Address = u.String()
	default:
		return Endpoint{}, fmt.Errorf("stream: unsupported scheme %q", u.Scheme)
	}

	return ep, nil
}
