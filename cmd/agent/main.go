package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/guardeloo/occupancy-agent/internal/service_registry"
	"github.com/guardeloo/occupancy-agent/internal/utils"
	"github.com/guardeloo/occupancy-agent/pkg/file"
	"github.com/guardeloo/occupancy-agent/pkg/identity"
	"github.com/guardeloo/occupancy-agent/pkg/mqtt"
)

func main() {
	// Structured logs go to stderr; stdout is reserved for room status lines.
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	// Initialize file operations handler
	fileClient := file.NewFileService()

	// Load configuration from file
	config, err := utils.LoadConfig("configs/config.yaml", fileClient)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Load the monitor identity, assigning a fresh ID on first run
	monitorInfo := identity.NewMonitorInfo(config.Identity.MonitorFile, fileClient)
	if err := monitorInfo.LoadMonitorInfo(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load monitor information")
	}
	if monitorInfo.GetMonitorID() == "" {
		if err := monitorInfo.SaveMonitorID(uuid.New().String()); err != nil {
			log.Fatal().Err(err).Msg("Failed to save monitor ID")
		}
		log.Info().Str("monitor_id", monitorInfo.GetMonitorID()).Msg("Assigned new monitor ID")
	}

	// Initialize the shared MQTT connection only when a publishing service needs it
	var mqttClient mqtt.MQTTClient
	if config.Services.Status.Enabled || config.Services.Health.Enabled {
		clientID := config.MQTT.ClientID + "-" + uuid.New().String()
		log.Info().Str("client_id", clientID).Msg("Using MQTT Client ID")

		service := mqtt.NewMqttService(fileClient)
		if err := service.Initialize(config.MQTT.Broker, clientID, config.MQTT.CACertificate); err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize MQTT connection")
		}
		mqttClient = service
	}

	// Create a new service registry to manage services
	serviceRegistry := service_registry.NewServiceRegistry(mqttClient, fileClient, log)

	// Register all services based on the configuration
	if err := serviceRegistry.RegisterServices(config, monitorInfo); err != nil {
		log.Fatal().Err(err).Msg("Failed to register services")
	}

	// Start all registered services in the registry
	if err := serviceRegistry.StartServices(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start services")
	}
	log.Info().Msg("All services started successfully")

	// Handle graceful shutdown
	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh

	log.Info().Msg("Shutting down gracefully...")
	if err := serviceRegistry.StopServices(); err != nil {
		log.Error().Err(err).Msg("Failed to stop some services")
	}
	if mqttClient != nil {
		mqttClient.Disconnect(250)
	}
}
