package models

import "time"

// HealthMetrics represents the monitor's own resource usage collected at a
// specific time.
type HealthMetrics struct {
	MonitorID string    `json:"monitor_id"`
	Timestamp time.Time `json:"timestamp"`
	CPUUsage  *float64  `json:"cpu_usage,omitempty"`
	Memory    *float64  `json:"memory,omitempty"`
}
