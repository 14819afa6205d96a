package constants

import "time"

// OccupancyState is the debounced room state derived from heartbeat telemetry.
type OccupancyState string

const (
	// RoomEmpty indicates no live heartbeat has been seen within the empty timeout.
	RoomEmpty OccupancyState = "empty"
	// RoomOccupied indicates a positive heartbeat sample was seen recently.
	RoomOccupied OccupancyState = "occupied"
)

const (
	// DefaultEmptyTimeout is how long the room must stay silent before it is declared empty.
	DefaultEmptyTimeout = 10 * time.Second

	// DefaultTickInterval bounds how late an empty-timeout expiry can be detected.
	DefaultTickInterval = 1 * time.Second

	// DefaultBackoff is the wait between retries of a failed acquisition stage.
	DefaultBackoff = 5 * time.Second

	// DefaultResolveAttempts is how many resolution attempts are made before
	// falling back to a fresh discovery pass.
	DefaultResolveAttempts = 3

	// DefaultPublishInterval is the reporting period for the optional status
	// and health publishers when the configuration leaves it unset.
	DefaultPublishInterval = 60 * time.Second
)

const (
	// DefaultDiscoveryService is the mDNS service type advertised by the sensor firmware.
	DefaultDiscoveryService = "_esphomelib._tcp"

	// DefaultDiscoveryDomain is the mDNS browse domain.
	DefaultDiscoveryDomain = "local."
)
