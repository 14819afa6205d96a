// Package telemetry extracts structured readings from the sensor's raw log
// lines. The overwhelming majority of lines are unrelated to heartbeat
// telemetry; not matching is the expected case, never an error.
package telemetry

import (
	"regexp"
	"strconv"
	"time"

	"github.com/guardeloo/occupancy-agent/internal/models"
)

// heartbeatPattern matches the sensor's heartbeat report: a numeric field
// following the fixed label token, e.g.
//
//	[21:47:33][D][sensor:094]: 'Real-time Heart Rate': Sending state 72.00000 bpm
//
// Casing of the surrounding log decoration varies between firmware builds
// and must not affect matching.
var heartbeatPattern = regexp.MustCompile(`(?i)'real-time heart rate'.*?(\d+(?:\.\d+)?)\s*bpm`)

// firmwarePattern matches the firmware version printed in the log preamble.
var firmwarePattern = regexp.MustCompile(`(?i)esphome\s+version\s+(\d+\.\d+\.\d+)`)

// ParseHeartbeat maps one raw log line to a HeartbeatReading. The second
// return value is false when the line does not carry a heartbeat report; a
// malformed or absent numeric payload is also "no match". The reading's
// timestamp is the supplied arrival time.
func ParseHeartbeat(line string, now time.Time) (models.HeartbeatReading, bool) {
	m := heartbeatPattern.FindStringSubmatch(line)
	if m == nil {
		return models.HeartbeatReading{}, false
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return models.HeartbeatReading{}, false
	}

	return models.HeartbeatReading{
		Value:      value,
		ObservedAt: now,
	}, true
}

// ParseFirmwareVersion extracts the device firmware version from a log
// preamble line, or returns false when the line does not carry one.
func ParseFirmwareVersion(line string) (string, bool) {
	m := firmwarePattern.FindStringSubmatch(line)
	if m == nil {
		return "", false
	}
	return m[1], true
}
