package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/guardeloo/occupancy-agent/internal/constants"
	"github.com/guardeloo/occupancy-agent/internal/models"
	"github.com/guardeloo/occupancy-agent/internal/occupancy"
	"github.com/guardeloo/occupancy-agent/tests/mocks"
)

// TestStatusService_StartStop tests the service lifecycle contract.
func TestStatusService_StartStop(t *testing.T) {
	mockMonitorInfo := new(mocks.MockMonitorInfo)
	mockMQTT := new(mocks.MockMQTTClient)
	engine := occupancy.NewEngine(10*time.Second, zerolog.Nop())

	s := NewStatusService("test-topic", time.Second, 1, mockMonitorInfo, engine, mockMQTT, zerolog.Nop())

	err := s.Start()
	assert.NoError(t, err)

	err = s.Start()
	assert.Error(t, err)
	assert.Equal(t, "status service is already running", err.Error())

	err = s.Stop()
	assert.NoError(t, err)

	err = s.Stop()
	assert.Error(t, err)
	assert.Equal(t, "status service is not running", err.Error())
}

// TestStatusService_PublishesCurrentState tests that the loop publishes the
// engine's current state as JSON.
func TestStatusService_PublishesCurrentState(t *testing.T) {
	mockMonitorInfo := new(mocks.MockMonitorInfo)
	mockMQTT := new(mocks.MockMQTTClient)
	mockToken := new(mocks.MockToken)
	engine := occupancy.NewEngine(10*time.Second, zerolog.Nop())

	mockMonitorInfo.On("GetMonitorID").Return("test-monitor-id")
	mockMonitorInfo.On("GetRoom").Return("bathroom")
	mockToken.On("Wait").Return(true)
	mockToken.On("Error").Return(nil)

	var published []byte
	mockMQTT.On("Publish", "test-topic", byte(1), false, mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(3).([]byte)
		}).
		Return(mockToken)

	engine.OnReading(models.HeartbeatReading{Value: 72, ObservedAt: time.Now()})

	s := NewStatusService("test-topic", 50*time.Millisecond, 1, mockMonitorInfo, engine, mockMQTT, zerolog.Nop())

	assert.NoError(t, s.Start())
	time.Sleep(80 * time.Millisecond)
	assert.NoError(t, s.Stop())

	assert.NotNil(t, published)

	var status models.OccupancyStatus
	assert.NoError(t, json.Unmarshal(published, &status))
	assert.Equal(t, "test-monitor-id", status.MonitorID)
	assert.Equal(t, "bathroom", status.Room)
	assert.Equal(t, constants.RoomOccupied, status.State)

	mockMonitorInfo.AssertExpectations(t)
	mockMQTT.AssertExpectations(t)
}
