package stream

import (
	"bufio"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// lineBuffer bounds how far the reader goroutine can run ahead of the consumer.
const lineBuffer = 64

// maxLineSize caps a single log line; the sensor firmware never comes close.
const maxLineSize = 256 * 1024

// readerSource adapts any io.ReadCloser into a LineSource by scanning lines
// on a dedicated goroutine. The consumer reads from a channel, so a blocked
// transport read never stalls the caller's select loop.
type readerSource struct {
	closer io.Closer
	lines  chan string
	done   chan struct{}
	logger zerolog.Logger

	closeOnce sync.Once
	closeErr  error

	mu  sync.Mutex
	err error
}

// newReaderSource starts the read loop over rc and returns the source.
func newReaderSource(rc io.ReadCloser, logger zerolog.Logger) *readerSource {
	s := &readerSource{
		closer: rc,
		lines:  make(chan string, lineBuffer),
		done:   make(chan struct{}),
		logger: logger,
	}

	go s.readLoop(rc)
	return s
}

func (s *readerSource) readLoop(r io.Reader) {
	defer close(s.lines)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	for scanner.Scan() {
		select {
		case s.lines <- scanner.Text():
		case <-s.done:
			return
		}
	}

	if err := scanner.Err(); err != nil {
		select {
		case <-s.done:
			// Explicit Close tears down the transport under the reader;
			// the resulting read error is not a stream fault.
		default:
			s.setErr(err)
			s.logger.Debug().Err(err).Msg("Line stream terminated with error")
		}
	}
}

func (s *readerSource) setErr(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Lines returns the channel of raw log lines.
func (s *readerSource) Lines() <-chan string {
	return s.lines
}

// Err returns the error that terminated the stream, if any.
func (s *readerSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close terminates the read loop and closes the underlying transport.
func (s *readerSource) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.closeErr = s.closer.Close()
	})
	return s.closeErr
}
