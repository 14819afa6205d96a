package utils

import (
	"time"

	"github.com/guardeloo/occupancy-agent/internal/constants"
	"github.com/guardeloo/occupancy-agent/pkg/file"
)

// Config represents the structure of the configuration file. Durations are
// given in seconds and converted where the services are constructed.
type Config struct {
	MQTT struct {
		Broker        string `yaml:"broker"`         // MQTT broker address
		ClientID      string `yaml:"client_id"`      // MQTT client ID
		CACertificate string `yaml:"ca_certificate"` // Path to the CA certificate (empty for plain TCP)
	} `yaml:"mqtt"`

	Identity struct {
		MonitorFile string `yaml:"monitor_file"` // Path to the monitor identity file
	} `yaml:"identity"`

	Monitor struct {
		DeviceFilter    string        `yaml:"device_filter"`    // Substring the device's mDNS instance name must contain
		EmptyTimeout    time.Duration `yaml:"empty_timeout"`    // Silence before declaring the room empty (in seconds)
		TickInterval    time.Duration `yaml:"tick_interval"`    // Clock tick driving timeout evaluation (in seconds)
		Backoff         time.Duration `yaml:"backoff"`          // Wait between retries of a failed acquisition stage (in seconds)
		ResolveAttempts int           `yaml:"resolve_attempts"` // Resolution attempts before re-running discovery
		MinFirmware     string        `yaml:"min_firmware"`     // Minimum supported device firmware (empty to skip)

		Discovery struct {
			Service  string        `yaml:"service"`   // mDNS service type
			Domain   string        `yaml:"domain"`    // mDNS browse domain
			Window   time.Duration `yaml:"window"`    // Duration of one browse pass (in seconds)
			CacheTTL time.Duration `yaml:"cache_ttl"` // How long a cached advertisement stays trusted (in seconds)
		} `yaml:"discovery"`

		Transport struct {
			Kind        string        `yaml:"kind"`         // "tcp" or "serial"
			LogPort     int           `yaml:"log_port"`     // TCP log-streaming port on the device
			DialTimeout time.Duration `yaml:"dial_timeout"` // TCP dial timeout (in seconds)
			SerialPort  string        `yaml:"serial_port"`  // Serial device path (kind: serial)
			SerialBaud  int           `yaml:"serial_baud"`  // Serial baud rate (kind: serial)
		} `yaml:"transport"`
	} `yaml:"monitor"`

	Services struct {
		Status struct {
			Topic    string        `yaml:"topic"`    // MQTT topic for status reports
			Enabled  bool          `yaml:"enabled"`  // Enable/disable status publishing
			Interval time.Duration `yaml:"interval"` // Interval between status reports (in seconds)
			QOS      int           `yaml:"qos"`      // MQTT QoS level for status messages
		} `yaml:"status"`

		Health struct {
			Topic    string        `yaml:"topic"`    // MQTT topic for health metrics
			Enabled  bool          `yaml:"enabled"`  // Enable/disable health publishing
			Interval time.Duration `yaml:"interval"` // Interval between health snapshots (in seconds)
			QOS      int           `yaml:"qos"`      // MQTT QoS level for health messages
		} `yaml:"health"`
	} `yaml:"services"`
}

// LoadConfig loads the YAML configuration from the specified file and fills
// in defaults for unset discovery and transport parameters.
func LoadConfig(filename string, fileClient file.FileOperations) (*Config, error) {
	var config Config
	err := fileClient.ReadYamlFile(filename, &config)
	if err != nil {
		return nil, err
	}

	applyDefaults(&config)
	return &config, nil
}

// applyDefaults fills zero-valued monitor parameters with their defaults.
// Duration fields are defaulted where they are converted, at the service
// construction boundary.
func applyDefaults(config *Config) {
	m := &config.Monitor

	if m.ResolveAttempts == 0 {
		m.ResolveAttempts = constants.DefaultResolveAttempts
	}
	if m.Discovery.Service == "" {
		m.Discovery.Service = constants.DefaultDiscoveryService
	}
	if m.Discovery.Domain == "" {
		m.Discovery.Domain = constants.DefaultDiscoveryDomain
	}
	if m.Transport.Kind == "" {
		m.Transport.Kind = "tcp"
	}
}
