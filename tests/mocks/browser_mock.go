package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/guardeloo/occupancy-agent/pkg/discovery"
)

// MockBrowser is a mock implementation of the discovery.Browser interface
type MockBrowser struct {
	mock.Mock
}

func (m *MockBrowser) Browse(ctx context.Context, nameFilter string) ([]discovery.Device, error) {
	args := m.Called(ctx, nameFilter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]discovery.Device), args.Error(1)
}
