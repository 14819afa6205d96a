// Package occupancy derives a debounced room state from heartbeat telemetry.
package occupancy

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/guardeloo/occupancy-agent/internal/constants"
	"github.com/guardeloo/occupancy-agent/internal/models"
)

// Transition is emitted exactly once per actual state change.
type Transition struct {
	From constants.OccupancyState
	To   constants.OccupancyState
	At   time.Time
}

// Engine maintains the occupancy state for one monitored stream.
//
// Occupancy is asserted immediately on any positive heartbeat reading and
// revoked only after emptyTimeout of sustained silence, observed via Tick.
// A zero-valued reading neither refreshes the heartbeat timestamp nor forces
// an immediate transition to empty.
//
// OnReading, Tick and Reset are mutex-serialized so that ticks may be
// delivered from a separate timer goroutine.
type Engine struct {
	emptyTimeout time.Duration
	logger       zerolog.Logger

	mu              sync.Mutex
	state           constants.OccupancyState
	since           time.Time
	lastHeartbeatAt time.Time
	onTransition    func(Transition)
}

// NewEngine creates an engine in the empty state.
func NewEngine(emptyTimeout time.Duration, logger zerolog.Logger) *Engine {
	return &Engine{
		emptyTimeout: emptyTimeout,
		logger:       logger,
		state:        constants.RoomEmpty,
	}
}

// OnTransition registers the handler invoked on every state change. The
// handler runs outside the engine's lock, so it may call back into the
// engine. Must be set before readings or ticks are delivered.
func (e *Engine) OnTransition(fn func(Transition)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onTransition = fn
}

// OnReading applies one heartbeat reading. A positive value refreshes the
// heartbeat timestamp and, if the room was empty, occupies it immediately
// rather than waiting for the next tick.
func (e *Engine) OnReading(r models.HeartbeatReading) {
	e.mu.Lock()

	if r.Value <= 0 {
		e.mu.Unlock()
		return
	}

	// Readings are applied in arrival order; arrival order is trusted as a
	// proxy for time order.
	e.lastHeartbeatAt = r.ObservedAt

	if e.state == constants.RoomOccupied {
		e.mu.Unlock()
		return
	}

	t := e.transitionLocked(constants.RoomOccupied, r.ObservedAt)
	fn := e.onTransition
	e.mu.Unlock()

	e.emit(fn, t)
}

// Tick evaluates the empty timeout against now. The room goes empty only
// when it is currently occupied and no positive reading has been seen within
// emptyTimeout, or the heartbeat timestamp was cleared. Repeated ticks with
// no state change emit nothing.
func (e *Engine) Tick(now time.Time) {
	e.mu.Lock()

	if e.state != constants.RoomOccupied {
		e.mu.Unlock()
		return
	}
	if !e.lastHeartbeatAt.IsZero() && now.Sub(e.lastHeartbeatAt) <= e.emptyTimeout {
		e.mu.Unlock()
		return
	}

	e.lastHeartbeatAt = time.Time{}
	t := e.transitionLocked(constants.RoomEmpty, now)
	fn := e.onTransition
	e.mu.Unlock()

	e.emit(fn, t)
}

// Reset clears the heartbeat timestamp and forces the empty state. Used when
// the device connection is lost, so stale occupancy is never reported
// indefinitely. Emits a transition when the room was occupied.
func (e *Engine) Reset() {
	e.mu.Lock()

	e.lastHeartbeatAt = time.Time{}

	if e.state == constants.RoomEmpty {
		e.mu.Unlock()
		return
	}

	t := e.transitionLocked(constants.RoomEmpty, time.Now())
	fn := e.onTransition
	e.mu.Unlock()

	e.emit(fn, t)
}

// State returns the current occupancy state.
func (e *Engine) State() constants.OccupancyState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Snapshot returns the current state and the time it was entered.
func (e *Engine) Snapshot() (constants.OccupancyState, time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state, e.since
}

func (e *Engine) transitionLocked(to constants.OccupancyState, at time.Time) Transition {
	t := Transition{From: e.state, To: to, At: at}
	e.state = to
	e.since = at
	return t
}

func (e *Engine) emit(fn func(Transition), t Transition) {
	e.logger.Debug().
		Str("from", string(t.From)).
		Str("to", string(t.To)).
		Time("at", t.At).
		Msg("Occupancy state changed")

	if fn != nil {
		fn(t)
	}
}
