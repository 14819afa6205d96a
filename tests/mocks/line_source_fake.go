package mocks

import "sync"

// FakeLineSource is a scripted stream.LineSource for tests. Lines written
// with Send are delivered on the Lines channel; Finish terminates the stream
// with an optional error, as a real transport would on disconnect.
type FakeLineSource struct {
	lines chan string

	mu       sync.Mutex
	err      error
	finished bool
	closed   bool
}

// NewFakeLineSource creates an open fake source.
func NewFakeLineSource() *FakeLineSource {
	return &FakeLineSource{
		lines: make(chan string, 64),
	}
}

// NewFinishedLineSource creates a source that delivers the given lines and
// then terminates with err (nil for a clean end-of-stream).
func NewFinishedLineSource(err error, lines ...string) *FakeLineSource {
	s := NewFakeLineSource()
	for _, line := range lines {
		s.Send(line)
	}
	s.Finish(err)
	return s
}

// Send queues one line for delivery.
func (s *FakeLineSource) Send(line string) {
	s.lines <- line
}

// Finish terminates the stream with err. Safe to call once.
func (s *FakeLineSource) Finish(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.finished {
		return
	}
	s.finished = true
	s.err = err
	close(s.lines)
}

func (s *FakeLineSource) Lines() <-chan string {
	return s.lines
}

func (s *FakeLineSource) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *FakeLineSource) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.Finish(nil)
	return nil
}

// Closed reports whether Close was called.
func (s *FakeLineSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
