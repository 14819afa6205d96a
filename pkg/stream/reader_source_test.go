package stream

import (
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type readCloser struct {
	io.Reader
	closed bool
}

func (rc *readCloser) Close() error {
	rc.closed = true
	return nil
}

// TestReaderSource_DeliversLinesInOrder verifies lines arrive in stream
// order and the channel closes on end-of-stream with a nil Err.
func TestReaderSource_DeliversLinesInOrder(t *testing.T) {
	rc := &readCloser{Reader: strings.NewReader("first\nsecond\nthird\n")}
	s := newReaderSource(rc, zerolog.Nop())

	var lines []string
	for line := range s.Lines() {
		lines = append(lines, line)
	}

	assert.Equal(t, []string{"first", "second", "third"}, lines)
	assert.NoError(t, s.Err())
}

// TestReaderSource_CloseTerminates verifies Close releases the transport and
// ends the line channel even when the consumer stops reading.
func TestReaderSource_CloseTerminates(t *testing.T) {
	pr, pw := io.Pipe()
	s := newReaderSource(pr, zerolog.Nop())

	go pw.Write([]byte("hello\n"))

	select {
	case line := <-s.Lines():
		assert.Equal(t, "hello", line)
	case <-time.After(time.Second):
		t.Fatal("line was not delivered")
	}

	assert.NoError(t, s.Close())
	pw.Close()

	select {
	case _, ok := <-s.Lines():
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("line channel did not close")
	}

	// Close is idempotent.
	assert.NoError(t, s.Close())
}

// TestReaderSource_ReportsTransportError verifies a transport error
// surfaces through Err after the channel closes.
func TestReaderSource_ReportsTransportError(t *testing.T) {
	pr, pw := io.Pipe()
	s := newReaderSource(pr, zerolog.Nop())

	pw.CloseWithError(io.ErrUnexpectedEOF)

	for range s.Lines() {
	}

	assert.ErrorIs(t, s.Err(), io.ErrUnexpectedEOF)
}
