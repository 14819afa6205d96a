package service_registry

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/guardeloo/occupancy-agent/internal/constants"
	"github.com/guardeloo/occupancy-agent/internal/services"
	"github.com/guardeloo/occupancy-agent/internal/utils"
	"github.com/guardeloo/occupancy-agent/tests/mocks"
)

func testConfig() *utils.Config {
	var cfg utils.Config
	cfg.Monitor.DeviceFilter = "seeed"
	cfg.Monitor.Discovery.Service = constants.DefaultDiscoveryService
	cfg.Monitor.Discovery.Domain = constants.DefaultDiscoveryDomain
	cfg.Monitor.Transport.Kind = "tcp"
	cfg.Monitor.Transport.LogPort = 6053
	return &cfg
}

// TestRegisterServices_DefaultsStatusInterval verifies an enabled status
// service with no interval configured gets the default period instead of a
// zero ticker.
func TestRegisterServices_DefaultsStatusInterval(t *testing.T) {
	cfg := testConfig()
	cfg.Services.Status.Enabled = true
	cfg.Services.Status.Topic = "occupancy/status"

	sr := NewServiceRegistry(new(mocks.MockMQTTClient), nil, zerolog.Nop())
	err := sr.RegisterServices(cfg, new(mocks.MockMonitorInfo))

	assert.NoError(t, err)
	status, ok := sr.services["status"].(*services.StatusService)
	assert.True(t, ok)
	assert.Equal(t, constants.DefaultPublishInterval, status.Interval)
}

// TestRegisterServices_StatusRequiresMQTT verifies enabling status publishing
// without a broker configuration is rejected at registration.
func TestRegisterServices_StatusRequiresMQTT(t *testing.T) {
	cfg := testConfig()
	cfg.Services.Status.Enabled = true

	sr := NewServiceRegistry(nil, nil, zerolog.Nop())
	err := sr.RegisterServices(cfg, new(mocks.MockMonitorInfo))

	assert.Error(t, err)
}

// TestRegisterServices_UnknownTransport verifies a bad transport kind fails
// fast instead of producing a half-built pipeline.
func TestRegisterServices_UnknownTransport(t *testing.T) {
	cfg := testConfig()
	cfg.Monitor.Transport.Kind = "carrier-pigeon"

	sr := NewServiceRegistry(nil, nil, zerolog.Nop())
	err := sr.RegisterServices(cfg, new(mocks.MockMonitorInfo))

	assert.Error(t, err)
}
