// Package stream abstracts the sensor's log stream as a producer of raw text
// lines, decoupling the occupancy logic from any specific transport.
package stream

import "context"

// LineSource yields sequential text lines from a live telemetry channel.
// Lines is closed when the underlying stream terminates, after which Err
// reports the terminating error, if any. A LineSource is not restartable;
// a new one must be opened after termination.
type LineSource interface {
	// Lines returns the channel on which raw log lines are delivered.
	// The channel is closed when the stream ends or Close is called.
	Lines() <-chan string

	// Err returns the error that terminated the stream, or nil for a
	// clean end-of-stream or an explicit Close.
	Err() error

	// Close terminates the stream and releases the underlying transport.
	// It is safe to call more than once.
	Close() error
}

// Opener establishes a LineSource to a device at the given address.
type Opener interface {
	Open(ctx context.Context, address string) (LineSource, error)
}
