package service_registry

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/guardeloo/occupancy-agent/internal/constants"
	"github.com/guardeloo/occupancy-agent/internal/occupancy"
	"github.com/guardeloo/occupancy-agent/internal/pipeline"
	"github.com/guardeloo/occupancy-agent/internal/registry"
	"github.com/guardeloo/occupancy-agent/internal/services"
	"github.com/guardeloo/occupancy-agent/internal/utils"
	"github.com/guardeloo/occupancy-agent/pkg/discovery"
	"github.com/guardeloo/occupancy-agent/pkg/file"
	"github.com/guardeloo/occupancy-agent/pkg/identity"
	"github.com/guardeloo/occupancy-agent/pkg/mqtt"
	"github.com/guardeloo/occupancy-agent/pkg/resolver"
	"github.com/guardeloo/occupancy-agent/pkg/stream"
)

// ServiceRegistry manages the lifecycle of the agent's services.
type ServiceRegistry struct {
	services    map[string]registry.Service // Stores registered services
	serviceKeys []string                    // Maintains order of service registration
	mqttClient  mqtt.MQTTClient
	fileClient  file.FileOperations
	Logger      zerolog.Logger
}

// NewServiceRegistry initializes a new service registry with dependencies.
// mqttClient may be nil when no MQTT-backed service is enabled.
func NewServiceRegistry(mqttClient mqtt.MQTTClient, fileClient file.FileOperations, logger zerolog.Logger) *ServiceRegistry {
	return &ServiceRegistry{
		services:   make(map[string]registry.Service),
		mqttClient: mqttClient,
		fileClient: fileClient,
		Logger:     logger,
	}
}

// RegisterService adds a new service to the registry.
func (sr *ServiceRegistry) RegisterService(name string, svc registry.Service) {
	if _, exists := sr.services[name]; exists {
		sr.Logger.Warn().Msgf("Service %s is already registered", name)
		return
	}
	sr.services[name] = svc
	sr.serviceKeys = append(sr.serviceKeys, name)
	sr.Logger.Info().Msgf("Registered service: %s", name)
}

// StartServices initiates all registered services in order.
// If a service fails to start, it stops already started services.
func (sr *ServiceRegistry) StartServices() error {
	startedServices := []string{}

	for _, name := range sr.serviceKeys {
		svc := sr.services[name]
		sr.Logger.Info().Msgf("Starting service: %s", name)
		if err := svc.Start(); err != nil {
			sr.Logger.Error().Err(err).Msgf("Failed to start service: %s", name)

			sr.Logger.Warn().Msg("Stopping already started services due to startup failure...")
			for i := len(startedServices) - 1; i >= 0; i-- {
				_ = sr.services[startedServices[i]].Stop()
			}
			return err
		}
		startedServices = append(startedServices, name)
	}

	return nil
}

// StopServices stops all services in reverse order.
func (sr *ServiceRegistry) StopServices() error {
	var stopErrors []error
	for i := len(sr.serviceKeys) - 1; i >= 0; i-- {
		name := sr.serviceKeys[i]
		if err := sr.services[name].Stop(); err != nil {
			stopErrors = append(stopErrors, fmt.Errorf("failed to stop %s: %w", name, err))
		}
	}
	if len(stopErrors) > 0 {
		for _, e := range stopErrors {
			sr.Logger.Error().Err(e).Msg("Service stop failure")
		}
		return errors.Join(stopErrors...)
	}
	return nil
}

// RegisterServices initializes and registers services based on configuration.
// The monitor is always registered; status and health publishing are
// optional and require an MQTT client.
func (sr *ServiceRegistry) RegisterServices(config *utils.Config, monitorInfo identity.MonitorInfoInterface) error {
	engine := occupancy.NewEngine(
		durationSeconds(config.Monitor.EmptyTimeout, constants.DefaultEmptyTimeout),
		sr.Logger,
	)

	acquirer, err := sr.buildPipeline(config)
	if err != nil {
		return err
	}

	sr.RegisterService("monitor", services.NewMonitorService(
		durationSeconds(config.Monitor.TickInterval, constants.DefaultTickInterval),
		config.Monitor.MinFirmware,
		acquirer,
		engine,
		os.Stdout,
		sr.Logger,
	))

	if config.Services.Status.Enabled {
		if sr.mqttClient == nil {
			return errors.New("status service enabled but MQTT is not configured")
		}
		sr.RegisterService("status", services.NewStatusService(
			config.Services.Status.Topic,
			durationSeconds(config.Services.Status.Interval, constants.DefaultPublishInterval),
			config.Services.Status.QOS,
			monitorInfo,
			engine,
			sr.mqttClient,
			sr.Logger,
		))
	}

	if config.Services.Health.Enabled {
		if sr.mqttClient == nil {
			return errors.New("health service enabled but MQTT is not configured")
		}
		sr.RegisterService("health", services.NewHealthService(
			config.Services.Health.Topic,
			durationSeconds(config.Services.Health.Interval, constants.DefaultPublishInterval),
			config.Services.Health.QOS,
			monitorInfo,
			sr.mqttClient,
			sr.Logger,
		))
	}

	return nil
}

// buildPipeline assembles the acquisition pipeline from configuration.
func (sr *ServiceRegistry) buildPipeline(config *utils.Config) (*pipeline.Pipeline, error) {
	m := config.Monitor
	dialTimeout := durationSeconds(m.Transport.DialTimeout, 5*time.Second)

	browser := discovery.NewMDNSBrowser(
		m.Discovery.Service,
		m.Discovery.Domain,
		durationSeconds(m.Discovery.Window, 5*time.Second),
		durationSeconds(m.Discovery.CacheTTL, time.Minute),
		sr.Logger,
	)
	res := resolver.NewNetResolver(dialTimeout, sr.Logger)

	var opener stream.Opener
	switch m.Transport.Kind {
	case "tcp":
		opener = stream.NewTCPOpener(m.Transport.LogPort, dialTimeout, sr.Logger)
	case "serial":
		opener = stream.NewSerialOpener(m.Transport.SerialPort, m.Transport.SerialBaud, sr.Logger)
	default:
		return nil, fmt.Errorf("unknown transport kind: %s", m.Transport.Kind)
	}

	return pipeline.New(
		m.DeviceFilter,
		durationSeconds(m.Backoff, constants.DefaultBackoff),
		m.ResolveAttempts,
		browser,
		res,
		opener,
		sr.Logger,
	), nil
}

// durationSeconds converts a duration given as a plain seconds count in the
// configuration file, substituting fallback when unset.
func durationSeconds(n time.Duration, fallback time.Duration) time.Duration {
	if n == 0 {
		return fallback
	}
	return time.Duration(n) * time.Second
}
