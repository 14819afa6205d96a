package services

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/guardeloo/occupancy-agent/internal/models"
	"github.com/guardeloo/occupancy-agent/internal/occupancy"
	"github.com/guardeloo/occupancy-agent/pkg/identity"
	"github.com/guardeloo/occupancy-agent/pkg/mqtt"
)

// StatusService publishes periodic room status reports over MQTT.
type StatusService struct {
	PubTopic    string
	Interval    time.Duration
	QOS         int
	MonitorInfo identity.MonitorInfoInterface
	Engine      *occupancy.Engine
	MqttClient  mqtt.MQTTClient
	Logger      zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewStatusService initializes a new StatusService.
func NewStatusService(pubTopic string, interval time.Duration, qos int, monitorInfo identity.MonitorInfoInterface,
	engine *occupancy.Engine, mqttClient mqtt.MQTTClient, logger zerolog.Logger) *StatusService {

	return &StatusService{
		PubTopic:    pubTopic,
		Interval:    interval,
		QOS:         qos,
		MonitorInfo: monitorInfo,
		Engine:      engine,
		MqttClient:  mqttClient,
		Logger:      logger,
	}
}

// Start launches the status publishing loop in a separate goroutine.
func (s *StatusService) Start() error {
	if s.ctx != nil {
		s.Logger.Warn().Msg("StatusService is already running")
		return errors.New("status service is already running")
	}

	s.ctx, s.cancel = context.WithCancel(context.Background())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runStatusLoop()
	}()

	s.Logger.Info().Str("topic", s.PubTopic).Msg("StatusService started successfully")
	return nil
}

// Stop gracefully stops the status service.
func (s *StatusService) Stop() error {
	if s.ctx == nil {
		s.Logger.Warn().Msg("StatusService is not running")
		return errors.New("status service is not running")
	}

	s.cancel()
	s.wg.Wait()

	s.ctx = nil
	s.cancel = nil

	s.Logger.Info().Msg("StatusService stopped successfully")
	return nil
}

// runStatusLoop continuously publishes room status at the specified interval.
func (s *StatusService) runStatusLoop() {
	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			state, since := s.Engine.Snapshot()
			statusMessage := models.OccupancyStatus{
				MonitorID: s.MonitorInfo.GetMonitorID(),
				Room:      s.MonitorInfo.GetRoom(),
				State:     state,
				Since:     since,
				Timestamp: time.Now(),
			}

			payload, err := json.Marshal(statusMessage)
			if err != nil {
				s.Logger.Error().Err(err).Msg("Failed to serialize status message")
				continue
			}

			token := s.MqttClient.Publish(s.PubTopic, byte(s.QOS), false, payload)
			token.Wait()

			if err := token.Error(); err != nil {
				s.Logger.Error().Err(err).Msg("Failed to publish status message")
			} else {
				s.Logger.Debug().Str("state", string(state)).Msg("Status published successfully")
			}

		case <-s.ctx.Done():
			s.Logger.Info().Msg("StatusService stopping gracefully")
			return
		}
	}
}
