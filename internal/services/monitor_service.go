package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"

	"github.com/guardeloo/occupancy-agent/internal/constants"
	"github.com/guardeloo/occupancy-agent/internal/models"
	"github.com/guardeloo/occupancy-agent/internal/occupancy"
	"github.com/guardeloo/occupancy-agent/internal/telemetry"
	"github.com/guardeloo/occupancy-agent/pkg/stream"
)

// statusTimeFormat is the timestamp layout of rendered status lines.
const statusTimeFormat = "2006-01-02 15:04:05"

// Acquirer produces a live line stream for the monitored device.
type Acquirer interface {
	Acquire(ctx context.Context) (models.DeviceHandle, stream.LineSource, error)
}

// MonitorService glues the acquisition pipeline, the heartbeat parser and the
// occupancy engine into a run loop. Each occupancy transition is rendered as
// a timestamped status line on out. When the line stream terminates, the
// engine is reset and a new stream is acquired.
type MonitorService struct {
	// Configuration fields
	tickInterval time.Duration
	minFirmware  string

	// Dependencies
	acquirer Acquirer
	engine   *occupancy.Engine
	out      io.Writer
	logger   zerolog.Logger

	// Internal state management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	firmwareChecked bool
}

// NewMonitorService creates a new MonitorService instance. minFirmware may be
// empty to skip the firmware version gate.
func NewMonitorService(tickInterval time.Duration, minFirmware string, acquirer Acquirer,
	engine *occupancy.Engine, out io.Writer, logger zerolog.Logger) *MonitorService {
	return &MonitorService{
		tickInterval: tickInterval,
		minFirmware:  minFirmware,
		acquirer:     acquirer,
		engine:       engine,
		out:          out,
		logger:       logger,
	}
}

// Start launches the monitor loop in a separate goroutine.
func (m *MonitorService) Start() error {
	if m.ctx != nil {
		m.logger.Warn().Msg("MonitorService is already running")
		return errors.New("monitor service is already running")
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.engine.OnTransition(m.renderTransition)

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		m.run()
	}()

	m.logger.Info().
		Dur("tick_interval", m.tickInterval).
		Msg("MonitorService started successfully")
	return nil
}

// Stop gracefully stops the monitor service, cancelling any in-flight
// acquisition stage and terminating the active line stream.
func (m *MonitorService) Stop() error {
	if m.ctx == nil {
		m.logger.Warn().Msg("MonitorService is not running")
		return errors.New("monitor service is not running")
	}

	m.cancel()
	m.wg.Wait()

	m.ctx = nil
	m.cancel = nil

	m.logger.Info().Msg("MonitorService stopped successfully")
	return nil
}

// run drives acquisition and stream consumption until cancelled.
func (m *MonitorService) run() {
	for {
		handle, source, err := m.acquirer.Acquire(m.ctx)
		if err != nil {
			// Acquire only fails on cancellation.
			return
		}

		m.logger.Info().
			Str("hostname", handle.Hostname).
			Str("address", handle.Address).
			Msg("Device log stream established")

		m.consume(source)

		if err := source.Close(); err != nil {
			m.logger.Debug().Err(err).Msg("Failed to close line stream")
		}
		m.engine.Reset()

		if m.ctx.Err() != nil {
			return
		}
		m.logger.Info().Msg("Log stream ended, reacquiring device")
	}
}

// consume reads lines from the source while driving the engine's clock.
// Ticks fire at the tick interval so the empty timeout is detected with
// sub-second latency even when no lines arrive; lines already available are
// applied before the tick is evaluated.
func (m *MonitorService) consume(source stream.LineSource) {
	m.firmwareChecked = false

	ticker := time.NewTicker(m.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return

		case line, ok := <-source.Lines():
			if !ok {
				m.logStreamEnd(source)
				return
			}
			m.handleLine(line)

		case now := <-ticker.C:
			if !m.drainLines(source) {
				m.logStreamEnd(source)
				return
			}
			m.engine.Tick(now)
		}
	}
}

// drainLines applies all currently-available lines, returning false when the
// stream has terminated.
func (m *MonitorService) drainLines(source stream.LineSource) bool {
	for {
		select {
		case line, ok := <-source.Lines():
			if !ok {
				return false
			}
			m.handleLine(line)
		default:
			return true
		}
	}
}

// handleLine feeds a heartbeat reading to the engine when the line carries
// one. Non-matching lines are the expected case and are silently ignored.
func (m *MonitorService) handleLine(line string) {
	if reading, ok := telemetry.ParseHeartbeat(line, time.Now()); ok {
		m.engine.OnReading(reading)
		return
	}

	if m.minFirmware == "" || m.firmwareChecked {
		return
	}
	if version, ok := telemetry.ParseFirmwareVersion(line); ok {
		m.firmwareChecked = true
		m.checkFirmware(version)
	}
}

// checkFirmware warns when the device firmware is below the configured
// minimum. The stream is still consumed either way.
func (m *MonitorService) checkFirmware(version string) {
	device, err := semver.NewVersion(version)
	if err != nil {
		m.logger.Debug().Err(err).Str("version", version).Msg("Unparseable firmware version")
		return
	}
	minimum, err := semver.NewVersion(m.minFirmware)
	if err != nil {
		m.logger.Warn().Err(err).Str("min_firmware", m.minFirmware).Msg("Invalid minimum firmware version in configuration")
		return
	}

	if device.LessThan(minimum) {
		m.logger.Warn().
			Str("device_version", version).
			Str("minimum_version", m.minFirmware).
			Msg("Device firmware is older than the supported minimum")
	} else {
		m.logger.Info().Str("device_version", version).Msg("Device firmware version verified")
	}
}

func (m *MonitorService) logStreamEnd(source stream.LineSource) {
	if err := source.Err(); err != nil {
		m.logger.Info().Err(err).Msg("Log stream terminated")
	} else {
		m.logger.Info().Msg("Log stream closed")
	}
}

// renderTransition writes one human-readable status line per state change.
func (m *MonitorService) renderTransition(t occupancy.Transition) {
	switch t.To {
	case constants.RoomOccupied:
		fmt.Fprintf(m.out, "[%s] Room occupied\n", t.At.Format(statusTimeFormat))
	case constants.RoomEmpty:
		fmt.Fprintf(m.out, "[%s] Room empty\n", t.At.Format(statusTimeFormat))
	}

	m.logger.Info().
		Str("from", string(t.From)).
		Str("to", string(t.To)).
		Msg("Room occupancy changed")
}
