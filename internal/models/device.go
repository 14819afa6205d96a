package models

// DeviceHandle identifies the sensor device currently being monitored.
// Address is empty until resolution succeeds. A handle is rebuilt from
// scratch on every reconnect and is never persisted.
type DeviceHandle struct {
	Hostname string
	Address  string
}
