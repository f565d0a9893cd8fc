package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyboard-server/internal/generation"
)

// MockBackend is a mock type for the generation.Backend type
type MockBackend struct {
	mock.Mock
}

// SubmitJob provides a mock function with given fields: ctx, params
func (_m *MockBackend) SubmitJob(ctx context.Context, params generation.Params) (string, error) {
	ret := _m.Called(ctx, params)
	return ret.String(0), ret.Error(1)
}

// GetStatus provides a mock function with given fields: ctx, jobID
func (_m *MockBackend) GetStatus(ctx context.Context, jobID string) (generation.JobStatus, error) {
	ret := _m.Called(ctx, jobID)

	var r0 generation.JobStatus
	if rf, ok := ret.Get(0).(func(context.Context, string) generation.JobStatus); ok {
		r0 = rf(ctx, jobID)
	} else {
		r0 = ret.Get(0).(generation.JobStatus)
	}
	return r0, ret.Error(1)
}

// FetchAsset provides a mock function with given fields: ctx, assetURL
func (_m *MockBackend) FetchAsset(ctx context.Context, assetURL string) ([]byte, error) {
	ret := _m.Called(ctx, assetURL)

	var r0 []byte
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]byte)
	}
	return r0, ret.Error(1)
}

// NewMockBackend creates a new instance of MockBackend.
func NewMockBackend(t interface {
	mock.TestingT
	Helper()
}) *MockBackend {
	m := &MockBackend{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ generation.Backend = (*MockBackend)(nil)
