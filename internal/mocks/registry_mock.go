package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"storyboard-server/internal/models"
	"storyboard-server/internal/orchestrator"
)

// MockRegistry is a mock type for the orchestrator.Registry type
type MockRegistry struct {
	mock.Mock
}

// Claim provides a mock function with given fields: ctx, shotID, kind
func (_m *MockRegistry) Claim(ctx context.Context, shotID uuid.UUID, kind models.MediaKind) (bool, error) {
	ret := _m.Called(ctx, shotID, kind)
	return ret.Bool(0), ret.Error(1)
}

// Release provides a mock function with given fields: ctx, shotID, kind
func (_m *MockRegistry) Release(ctx context.Context, shotID uuid.UUID, kind models.MediaKind) error {
	ret := _m.Called(ctx, shotID, kind)
	return ret.Error(0)
}

// NextSeq provides a mock function with given fields: ctx, shotID, kind
func (_m *MockRegistry) NextSeq(ctx context.Context, shotID uuid.UUID, kind models.MediaKind) (int64, error) {
	ret := _m.Called(ctx, shotID, kind)
	return ret.Get(0).(int64), ret.Error(1)
}

// NewMockRegistry creates a new instance of MockRegistry.
func NewMockRegistry(t interface {
	mock.TestingT
	Helper()
}) *MockRegistry {
	m := &MockRegistry{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ orchestrator.Registry = (*MockRegistry)(nil)
