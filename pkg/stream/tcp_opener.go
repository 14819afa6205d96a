package stream

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// TCPOpener opens a plain TCP session to the device's log-streaming port.
type TCPOpener struct {
	port        int
	dialTimeout time.Duration
	logger      zerolog.Logger
}

// NewTCPOpener creates a TCPOpener for the given log port.
func NewTCPOpener(port int, dialTimeout time.Duration, logger zerolog.Logger) *TCPOpener {
	return &TCPOpener{
		port:        port,
		dialTimeout: dialTimeout,
		logger:      logger,
	}
}

// Open dials the device and returns a LineSource over the connection.
func (o *TCPOpener) Open(ctx context.Context, address string) (LineSource, error) {
	dialer := net.Dialer{Timeout: o.dialTimeout}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(address, strconv.Itoa(o.port)))
	if err != nil {
		return nil, err
	}

	o.logger.Debug().
		Str("address", address).
		Int("port", o.port).
		Msg("Log stream connection established")

	return newReaderSource(conn, o.logger), nil
}
