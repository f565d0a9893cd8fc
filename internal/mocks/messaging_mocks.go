package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyboard-server/internal/messaging"
)

// MockNotifier is a mock type for the messaging.Notifier type
type MockNotifier struct {
	mock.Mock
}

// Notify provides a mock function with given fields: ctx, payload
func (_m *MockNotifier) Notify(ctx context.Context, payload messaging.NotificationPayload) error {
	ret := _m.Called(ctx, payload)
	return ret.Error(0)
}

// NewMockNotifier creates a new instance of MockNotifier.
func NewMockNotifier(t interface {
	mock.TestingT
	Helper()
}) *MockNotifier {
	m := &MockNotifier{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ messaging.Notifier = (*MockNotifier)(nil)

// MockTaskPublisher is a mock type for the messaging.TaskPublisher type
type MockTaskPublisher struct {
	mock.Mock
}

// PublishMediaTask provides a mock function with given fields: ctx, payload
func (_m *MockTaskPublisher) PublishMediaTask(ctx context.Context, payload messaging.MediaTaskPayload) error {
	ret := _m.Called(ctx, payload)
	return ret.Error(0)
}

// NewMockTaskPublisher creates a new instance of MockTaskPublisher.
func NewMockTaskPublisher(t interface {
	mock.TestingT
	Helper()
}) *MockTaskPublisher {
	m := &MockTaskPublisher{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ messaging.TaskPublisher = (*MockTaskPublisher)(nil)
