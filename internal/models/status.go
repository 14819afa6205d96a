package models

import (
	"time"

	"github.com/guardeloo/occupancy-agent/internal/constants"
)

// OccupancyStatus is the structure for a periodic room status report
// published over MQTT.
type OccupancyStatus struct {
	MonitorID string                   `json:"monitor_id"`
	Room      string                   `json:"room"`
	State     constants.OccupancyState `json:"state"`
	Since     time.Time                `json:"since"`
	Timestamp time.Time                `json:"timestamp"`
}
