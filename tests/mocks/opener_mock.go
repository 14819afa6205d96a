package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/guardeloo/occupancy-agent/pkg/stream"
)

// MockOpener is a mock implementation of the stream.Opener interface
type MockOpener struct {
	mock.Mock
}

func (m *MockOpener) Open(ctx context.Context, address string) (stream.LineSource, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(stream.LineSource), args.Error(1)
}
