package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockResolver is a mock implementation of the resolver.Resolver interface
type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, hostname string) (string, error) {
	args := m.Called(ctx, hostname)
	return args.String(0), args.Error(1)
}
