package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/cpu"
	"github.com/shirou/gopsutil/mem"

	"github.com/guardeloo/occupancy-agent/internal/models"
	"github.com/guardeloo/occupancy-agent/pkg/identity"
	"github.com/guardeloo/occupancy-agent/pkg/mqtt"
)

// HealthService periodically publishes the monitor's own CPU and memory
// usage over MQTT so a stalled or starved monitor can be told apart from a
// genuinely empty room.
type HealthService struct {
	pubTopic    string
	interval    time.Duration
	qos         int
	monitorInfo identity.MonitorInfoInterface
	mqttClient  mqtt.MQTTClient
	logger      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewHealthService initializes a new HealthService.
func NewHealthService(pubTopic string, interval time.Duration, qos int,
	monitorInfo identity.MonitorInfoInterface, mqttClient mqtt.MQTTClient, logger zerolog.Logger) *HealthService {
	return &HealthService{
		pubTopic:    pubTopic,
		interval:    interval,
		qos:         qos,
		monitorInfo: monitorInfo,
		mqttClient:  mqttClient,
		logger:      logger,
	}
}

// Start launches the health publishing loop in a separate goroutine.
func (h *HealthService) Start() error {
	if h.ctx != nil {
		h.logger.Warn().Msg("HealthService is already running")
		return errors.New("health service is already running")
	}

	h.ctx, h.cancel = context.WithCancel(context.Background())

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		h.runHealthLoop()
	}()

	h.logger.Info().Str("topic", h.pubTopic).Msg("HealthService started successfully")
	return nil
}

// Stop gracefully stops the health service.
func (h *HealthService) Stop() error {
	if h.ctx == nil {
		h.logger.Warn().Msg("HealthService is not running")
		return errors.New("health service is not running")
	}

	h.cancel()
	h.wg.Wait()

	h.ctx = nil
	h.cancel = nil

	h.logger.Info().Msg("HealthService stopped successfully")
	return nil
}

// runHealthLoop collects and publishes health metrics at the configured interval.
func (h *HealthService) runHealthLoop() {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.publishHealthMetrics()
		case <-h.ctx.Done():
			h.logger.Info().Msg("HealthService stopping gracefully")
			return
		}
	}
}

// publishHealthMetrics collects one snapshot and publishes it. Collection
// failures degrade the payload rather than aborting it.
func (h *HealthService) publishHealthMetrics() {
	metrics := models.HealthMetrics{
		MonitorID: h.monitorInfo.GetMonitorID(),
		Timestamp: time.Now(),
	}

	if cpuPercentages, err := cpu.Percent(0, false); err != nil {
		h.logger.Error().Err(err).Msg("Failed to get CPU usage")
	} else if len(cpuPercentages) > 0 {
		metrics.CPUUsage = &cpuPercentages[0]
	}

	if vm, err := mem.VirtualMemory(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to get memory usage")
	} else {
		metrics.Memory = &vm.UsedPercent
	}

	payload, err := json.Marshal(metrics)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to serialize health metrics")
		return
	}

	token := h.mqttClient.Publish(h.pubTopic, byte(h.qos), false, payload)
	token.Wait()

	if err := token.Error(); err != nil {
		h.logger.Error().Err(err).Msg("Failed to publish health metrics")
	} else {
		h.logger.Debug().Msg("Health metrics published successfully")
	}
}
