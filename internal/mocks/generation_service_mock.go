package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"storyboard-server/internal/messaging"
	"storyboard-server/internal/models"
	"storyboard-server/internal/service"
)

// MockGenerationService is a mock type for the GenerationService type
type MockGenerationService struct {
	mock.Mock
}

// Enqueue provides a mock function with given fields: ctx, userID, shotID, kind
func (_m *MockGenerationService) Enqueue(ctx context.Context, userID uuid.UUID, shotID uuid.UUID, kind models.MediaKind) (string, error) {
	ret := _m.Called(ctx, userID, shotID, kind)
	return ret.String(0), ret.Error(1)
}

// EnqueueSceneImages provides a mock function with given fields: ctx, userID, sceneID
func (_m *MockGenerationService) EnqueueSceneImages(ctx context.Context, userID uuid.UUID, sceneID uuid.UUID) ([]string, error) {
	ret := _m.Called(ctx, userID, sceneID)

	var r0 []string
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]string)
	}
	return r0, ret.Error(1)
}

// ProcessTask provides a mock function with given fields: ctx, payload
func (_m *MockGenerationService) ProcessTask(ctx context.Context, payload messaging.MediaTaskPayload) (service.TaskOutcome, error) {
	ret := _m.Called(ctx, payload)

	var r0 service.TaskOutcome
	if rf, ok := ret.Get(0).(func(context.Context, messaging.MediaTaskPayload) service.TaskOutcome); ok {
		r0 = rf(ctx, payload)
	} else {
		r0 = ret.Get(0).(service.TaskOutcome)
	}
	return r0, ret.Error(1)
}

// NewMockGenerationService creates a new instance of MockGenerationService.
func NewMockGenerationService(t interface {
	mock.TestingT
	Helper()
}) *MockGenerationService {
	m := &MockGenerationService{}
	m.Mock.Test(t)
	return m
}

var _ service.GenerationService = (*MockGenerationService)(nil)
