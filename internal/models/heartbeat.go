package models

import "time"

// HeartbeatReading is one parsed radar heartbeat sample. Value > 0 denotes a
// live heartbeat; Value == 0 denotes a sample with no detection. Readings are
// consumed once by the occupancy engine and discarded.
type HeartbeatReading struct {
	Value      float64
	ObservedAt time.Time
}
