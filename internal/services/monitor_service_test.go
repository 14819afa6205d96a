package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/guardeloo/occupancy-agent/internal/constants"
	"github.com/guardeloo/occupancy-agent/internal/models"
	"github.com/guardeloo/occupancy-agent/internal/occupancy"
	"github.com/guardeloo/occupancy-agent/pkg/stream"
	"github.com/guardeloo/occupancy-agent/tests/mocks"
)

const heartbeatLine = "[21:47:33][D][sensor:094]: 'Real-time Heart Rate': Sending state 72.00000 bpm"

// scriptedAcquirer hands out pre-built line sources in order and then blocks
// until the context is cancelled, like the real pipeline under sustained
// network absence.
type scriptedAcquirer struct {
	mu      sync.Mutex
	sources []stream.LineSource
	calls   int
}

func (a *scriptedAcquirer) Acquire(ctx context.Context) (models.DeviceHandle, stream.LineSource, error) {
	a.mu.Lock()
	a.calls++
	if len(a.sources) > 0 {
		src := a.sources[0]
		a.sources = a.sources[1:]
		a.mu.Unlock()
		return models.DeviceHandle{Hostname: "test.local", Address: "192.0.2.1"}, src, nil
	}
	a.mu.Unlock()

	<-ctx.Done()
	return models.DeviceHandle{}, nil, ctx.Err()
}

func (a *scriptedAcquirer) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func newTestMonitor(acquirer Acquirer, out *bytes.Buffer) (*MonitorService, *occupancy.Engine) {
	engine := occupancy.NewEngine(10*time.Second, zerolog.Nop())
	m := NewMonitorService(10*time.Millisecond, "", acquirer, engine, out, zerolog.Nop())
	return m, engine
}

// TestMonitorService_StartStop mirrors the service lifecycle contract:
// double start and double stop both fail.
func TestMonitorService_StartStop(t *testing.T) {
	var out bytes.Buffer
	m, _ := newTestMonitor(&scriptedAcquirer{}, &out)

	err := m.Start()
	assert.NoError(t, err)

	err = m.Start()
	assert.Error(t, err)
	assert.Equal(t, "monitor service is already running", err.Error())

	err = m.Stop()
	assert.NoError(t, err)

	err = m.Stop()
	assert.Error(t, err)
	assert.Equal(t, "monitor service is not running", err.Error())
}

// TestMonitorService_RendersOccupiedTransition verifies a heartbeat line
// produces a rendered "Room occupied" status line.
func TestMonitorService_RendersOccupiedTransition(t *testing.T) {
	var out bytes.Buffer
	source := mocks.NewFakeLineSource()
	acquirer := &scriptedAcquirer{sources: []stream.LineSource{source}}
	m, engine := newTestMonitor(acquirer, &out)

	assert.NoError(t, m.Start())

	source.Send("[21:47:32][D][wifi:401]: Signal strength: -67 dB")
	source.Send(heartbeatLine)

	assert.Eventually(t, func() bool {
		return engine.State() == constants.RoomOccupied
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, m.Stop())

	rendered := out.String()
	assert.Contains(t, rendered, "Room occupied")
	assert.Regexp(t, `^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] Room occupied`, rendered)
}

// TestMonitorService_ReconnectsAfterStreamFailure walks scenario C: the
// stream errors after delivering readings, the engine is reset and a new
// stream is requested without crashing.
func TestMonitorService_ReconnectsAfterStreamFailure(t *testing.T) {
	var out bytes.Buffer
	failed := mocks.NewFinishedLineSource(errors.New("connection reset"),
		heartbeatLine, heartbeatLine, heartbeatLine)
	replacement := mocks.NewFakeLineSource()
	acquirer := &scriptedAcquirer{sources: []stream.LineSource{failed, replacement}}
	m, engine := newTestMonitor(acquirer, &out)

	assert.NoError(t, m.Start())

	// The second acquisition proves the driver recovered from the failure.
	assert.Eventually(t, func() bool {
		return acquirer.callCount() >= 2
	}, time.Second, 5*time.Millisecond)

	// Reset on reconnect: the occupancy asserted by the failed stream's
	// readings must not survive it.
	assert.Equal(t, constants.RoomEmpty, engine.State())

	assert.NoError(t, m.Stop())

	rendered := out.String()
	assert.Contains(t, rendered, "Room occupied")
	assert.Contains(t, rendered, "Room empty")
}

// TestMonitorService_TimeoutDetectedWithoutLines verifies ticks fire during
// silent periods: a reading followed by silence goes empty via the engine's
// timeout with no further input.
func TestMonitorService_TimeoutDetectedWithoutLines(t *testing.T) {
	var out bytes.Buffer
	source := mocks.NewFakeLineSource()
	acquirer := &scriptedAcquirer{sources: []stream.LineSource{source}}

	engine := occupancy.NewEngine(50*time.Millisecond, zerolog.Nop())
	m := NewMonitorService(10*time.Millisecond, "", acquirer, engine, &out, zerolog.Nop())

	assert.NoError(t, m.Start())

	source.Send(heartbeatLine)
	assert.Eventually(t, func() bool {
		return engine.State() == constants.RoomOccupied
	}, time.Second, 5*time.Millisecond)

	// No further lines; the tick loop alone must detect the timeout.
	assert.Eventually(t, func() bool {
		return engine.State() == constants.RoomEmpty
	}, time.Second, 5*time.Millisecond)

	assert.NoError(t, m.Stop())
	assert.Contains(t, out.String(), "Room empty")
}

// TestMonitorService_StopDuringAcquisition verifies a clean shutdown while
// the pipeline is still waiting for a device.
func TestMonitorService_StopDuringAcquisition(t *testing.T) {
	var out bytes.Buffer
	m, _ := newTestMonitor(&scriptedAcquirer{}, &out)

	assert.NoError(t, m.Start())
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		assert.NoError(t, m.Stop())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return while acquisition was pending")
	}
}

// TestMonitorService_FirmwareLinesDoNotDisturbEngine verifies preamble lines
// are consumed without producing readings.
func TestMonitorService_FirmwareLinesDoNotDisturbEngine(t *testing.T) {
	var out bytes.Buffer
	source := mocks.NewFakeLineSource()
	acquirer := &scriptedAcquirer{sources: []stream.LineSource{source}}

	engine := occupancy.NewEngine(10*time.Second, zerolog.Nop())
	m := NewMonitorService(10*time.Millisecond, "2024.6.0", acquirer, engine, &out, zerolog.Nop())

	assert.NoError(t, m.Start())

	source.Send("[I][app:029]: ESPHome version 2023.12.5 compiled on Dec 10 2023")
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, constants.RoomEmpty, engine.State())
	assert.NoError(t, m.Stop())
	assert.Empty(t, out.String())
}
