package mocks

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"storyboard-server/internal/models"
	"storyboard-server/internal/repository"
)

// MockStoryRepository is a mock type for the repository.StoryRepository type
type MockStoryRepository struct {
	mock.Mock
}

func (_m *MockStoryRepository) Create(ctx context.Context, story *models.Story) error {
	ret := _m.Called(ctx, story)
	return ret.Error(0)
}

func (_m *MockStoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.Story
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Story)
	}
	return r0, ret.Error(1)
}

func (_m *MockStoryRepository) Update(ctx context.Context, id uuid.UUID, patch models.StoryPatch) error {
	ret := _m.Called(ctx, id, patch)
	return ret.Error(0)
}

func (_m *MockStoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

func (_m *MockStoryRepository) ClearEmbeddedScenes(ctx context.Context, id uuid.UUID) (bool, error) {
	ret := _m.Called(ctx, id)
	return ret.Bool(0), ret.Error(1)
}

func (_m *MockStoryRepository) SetEmbeddedScenes(ctx context.Context, id uuid.UUID, scenes json.RawMessage) error {
	ret := _m.Called(ctx, id, scenes)
	return ret.Error(0)
}

// NewMockStoryRepository creates a new instance of MockStoryRepository.
func NewMockStoryRepository(t interface {
	mock.TestingT
	Helper()
}) *MockStoryRepository {
	m := &MockStoryRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.StoryRepository = (*MockStoryRepository)(nil)

// MockSceneRepository is a mock type for the repository.SceneRepository type
type MockSceneRepository struct {
	mock.Mock
}

func (_m *MockSceneRepository) Create(ctx context.Context, scene *models.Scene) error {
	ret := _m.Called(ctx, scene)
	return ret.Error(0)
}

func (_m *MockSceneRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Scene, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.Scene
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Scene)
	}
	return r0, ret.Error(1)
}

func (_m *MockSceneRepository) ListByStory(ctx context.Context, storyID uuid.UUID) ([]models.Scene, error) {
	ret := _m.Called(ctx, storyID)

	var r0 []models.Scene
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Scene)
	}
	return r0, ret.Error(1)
}

func (_m *MockSceneRepository) CountByStory(ctx context.Context, storyID uuid.UUID) (int, error) {
	ret := _m.Called(ctx, storyID)
	return ret.Int(0), ret.Error(1)
}

func (_m *MockSceneRepository) Update(ctx context.Context, scene *models.Scene) error {
	ret := _m.Called(ctx, scene)
	return ret.Error(0)
}

func (_m *MockSceneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// NewMockSceneRepository creates a new instance of MockSceneRepository.
func NewMockSceneRepository(t interface {
	mock.TestingT
	Helper()
}) *MockSceneRepository {
	m := &MockSceneRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.SceneRepository = (*MockSceneRepository)(nil)

// MockShotRepository is a mock type for the repository.ShotRepository type
type MockShotRepository struct {
	mock.Mock
}

func (_m *MockShotRepository) Create(ctx context.Context, shot *models.Shot) error {
	ret := _m.Called(ctx, shot)
	return ret.Error(0)
}

func (_m *MockShotRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Shot, error) {
	ret := _m.Called(ctx, id)

	var r0 *models.Shot
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*models.Shot)
	}
	return r0, ret.Error(1)
}

func (_m *MockShotRepository) ListByScene(ctx context.Context, sceneID uuid.UUID) ([]models.Shot, error) {
	ret := _m.Called(ctx, sceneID)

	var r0 []models.Shot
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]models.Shot)
	}
	return r0, ret.Error(1)
}

func (_m *MockShotRepository) CountByScene(ctx context.Context, sceneID uuid.UUID) (int, error) {
	ret := _m.Called(ctx, sceneID)
	return ret.Int(0), ret.Error(1)
}

func (_m *MockShotRepository) Update(ctx context.Context, shot *models.Shot) error {
	ret := _m.Called(ctx, shot)
	return ret.Error(0)
}

func (_m *MockShotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ret := _m.Called(ctx, id)
	return ret.Error(0)
}

// NewMockShotRepository creates a new instance of MockShotRepository.
func NewMockShotRepository(t interface {
	mock.TestingT
	Helper()
}) *MockShotRepository {
	m := &MockShotRepository{}
	m.Mock.Test(t)
	t.Helper()
	return m
}

var _ repository.ShotRepository = (*MockShotRepository)(nil)
