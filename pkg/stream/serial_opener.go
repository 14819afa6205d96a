package stream

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/tarm/serial"
)

// SerialOpener reads the sensor's log output from a local UART instead of the
// network. The resolved device address is ignored; discovery and resolution
// still identify the device, but the line stream comes from the configured
// serial port. Intended for bench setups where the sensor is wired over USB.
type SerialOpener struct {
	port   string
	baud   int
	logger zerolog.Logger
}

// NewSerialOpener creates a SerialOpener for the given port and baud rate.
func NewSerialOpener(port string, baud int, logger zerolog.Logger) *SerialOpener {
	return &SerialOpener{
		port:   port,
		baud:   baud,
		logger: logger,
	}
}

// Open opens the serial port and returns a LineSource over it.
func (o *SerialOpener) Open(_ context.Context, _ string) (LineSource, error) {
	c := &serial.Config{Name: o.port, Baud: o.baud}

	p, err := serial.OpenPort(c)
	if err != nil {
		return nil, err
	}

	o.logger.Debug().
		Str("port", o.port).
		Int("baud", o.baud).
		Msg("Serial log stream opened")

	return newReaderSource(p, o.logger), nil
}
