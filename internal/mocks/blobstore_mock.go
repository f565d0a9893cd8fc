package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"storyboard-server/internal/storage"
)

// MockBlobStore is a mock type for the storage.BlobStore type
type MockBlobStore struct {
	mock.Mock
}

// Put provides a mock function with given fields: ctx, path, data
func (_m *MockBlobStore) Put(ctx context.Context, path string, data []byte) (string, error) {
	ret := _m.Called(ctx, path, data)
	return ret.String(0), ret.Error(1)
}

// Delete provides a mock function with given fields: ctx, path
func (_m *MockBlobStore) Delete(ctx context.Context, path string) error {
	ret := _m.Called(ctx, path)
	return ret.Error(0)
}

// NewMockBlobStore creates a new instance of MockBlobStore.
func NewMockBlobStore(t interface {
	mock.TestingT
	Helper()
}) *MockBlobStore {
	m := &MockBlobStore{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ storage.BlobStore = (*MockBlobStore)(nil)
