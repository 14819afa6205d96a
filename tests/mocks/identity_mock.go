package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/guardeloo/occupancy-agent/pkg/identity"
)

// MockMonitorInfo is a mock implementation of the MonitorInfoInterface
type MockMonitorInfo struct {
	mock.Mock
}

func (m *MockMonitorInfo) LoadMonitorInfo() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockMonitorInfo) GetMonitorID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockMonitorInfo) GetRoom() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockMonitorInfo) GetIdentity() *identity.Identity {
	args := m.Called()
	return args.Get(0).(*identity.Identity)
}

func (m *MockMonitorInfo) SaveMonitorID(monitorID string) error {
	args := m.Called(monitorID)
	return args.Error(0)
}
