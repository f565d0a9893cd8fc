package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyboard-server/internal/generation"
	"storyboard-server/internal/messaging"
	"storyboard-server/internal/mocks"
	"storyboard-server/internal/models"
	"storyboard-server/internal/orchestrator"
	"storyboard-server/internal/service"
)

type generationFixture struct {
	svc       service.GenerationService
	storyRepo *mocks.MockStoryRepository
	sceneRepo *mocks.MockSceneRepository
	shotRepo  *mocks.MockShotRepository
	publisher *mocks.MockTaskPublisher
	backend   *mocks.MockBackend
	registry  *mocks.MockRegistry
	blobStore *mocks.MockBlobStore

	story *models.Story
	scene *models.Scene
	shot  *models.Shot
}

func newGenerationFixture(t *testing.T, userID uuid.UUID) *generationFixture {
	t.Helper()
	f := &generationFixture{
		storyRepo: mocks.NewMockStoryRepository(t),
		sceneRepo: mocks.NewMockSceneRepository(t),
		shotRepo:  mocks.NewMockShotRepository(t),
		publisher: mocks.NewMockTaskPublisher(t),
		backend:   mocks.NewMockBackend(t),
		registry:  mocks.NewMockRegistry(t),
		blobStore: mocks.NewMockBlobStore(t),
	}

	f.story = &models.Story{ID: models.NewID(), UserID: userID, Title: "Harbor"}
	f.scene = &models.Scene{ID: models.NewID(), StoryID: f.story.ID, Position: 1, Title: "Pier"}
	f.shot = &models.Shot{
		ID:           models.NewID(),
		SceneID:      f.scene.ID,
		Position:     1,
		Type:         models.ShotTypeWide,
		Description:  "gulls over the pier",
		Prompt:       "gulls over the pier",
		Dialogue:     "look at them go",
		SoundEffects: "gull cries",
	}
	f.shot.RecomputeFlags()

	backends := map[models.MediaKind]generation.Backend{
		models.MediaKindImage:         f.backend,
		models.MediaKindDialogueAudio: f.backend,
	}
	orch := orchestrator.New(zap.NewNop(), backends, f.registry, nil, orchestrator.Config{
		PollInterval:     10 * time.Millisecond,
		CheckTimeout:     50 * time.Millisecond,
		MaxCheckFailures: 3,
		Deadlines: map[models.MediaKind]time.Duration{
			models.MediaKindImage:         200 * time.Millisecond,
			models.MediaKindDialogueAudio: 200 * time.Millisecond,
		},
	})
	f.svc = service.NewGenerationService(
		zap.NewNop(), f.storyRepo, f.sceneRepo, f.shotRepo,
		orch, backends, f.blobStore, f.publisher, "default-voice")
	return f
}

func (f *generationFixture) expectChain() {
	f.shotRepo.On("GetByID", mock.Anything, f.shot.ID).Return(f.shot, nil)
	f.sceneRepo.On("GetByID", mock.Anything, f.scene.ID).Return(f.scene, nil)
	f.storyRepo.On("GetByID", mock.Anything, f.story.ID).Return(f.story, nil)
}

func TestEnqueue_SnapshotsPromptAndPublishes(t *testing.T) {
	userID := uuid.New()
	f := newGenerationFixture(t, userID)
	f.expectChain()

	f.shotRepo.On("Update", mock.Anything, mock.MatchedBy(func(shot *models.Shot) bool {
		return shot.PromptSnapshots[string(models.MediaKindImage)] == f.shot.Prompt
	})).Return(nil).Once()
	f.publisher.On("PublishMediaTask", mock.Anything, mock.MatchedBy(func(p messaging.MediaTaskPayload) bool {
		return p.ShotID == f.shot.ID && p.Kind == models.MediaKindImage && p.TaskID != ""
	})).Return(nil).Once()

	taskID, err := f.svc.Enqueue(context.Background(), userID, f.shot.ID, models.MediaKindImage)

	require.NoError(t, err)
	assert.NotEmpty(t, taskID)
}

func TestEnqueue_AudioSkipsPromptSnapshot(t *testing.T) {
	userID := uuid.New()
	f := newGenerationFixture(t, userID)
	f.expectChain()

	f.publisher.On("PublishMediaTask", mock.Anything, mock.MatchedBy(func(p messaging.MediaTaskPayload) bool {
		return p.Kind == models.MediaKindDialogueAudio && p.ShotID == f.shot.ID
	})).Return(nil).Once()

	_, err := f.svc.Enqueue(context.Background(), userID, f.shot.ID, models.MediaKindDialogueAudio)

	require.NoError(t, err)
	f.shotRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestEnqueue_PreconditionFailure(t *testing.T) {
	userID := uuid.New()
	f := newGenerationFixture(t, userID)
	f.shot.Dialogue = ""
	f.shot.RecomputeFlags()
	f.expectChain()

	_, err := f.svc.Enqueue(context.Background(), userID, f.shot.ID, models.MediaKindDialogueAudio)

	assert.ErrorIs(t, err, models.ErrPrecondition)
	f.publisher.AssertNotCalled(t, "PublishMediaTask", mock.Anything, mock.Anything)
}

func TestEnqueue_ScopeViolation(t *testing.T) {
	f := newGenerationFixture(t, uuid.New())
	f.expectChain()

	_, err := f.svc.Enqueue(context.Background(), uuid.New(), f.shot.ID, models.MediaKindImage)

	assert.ErrorIs(t, err, models.ErrScopeViolation)
	f.publisher.AssertNotCalled(t, "PublishMediaTask", mock.Anything, mock.Anything)
}

func TestEnqueue_UnknownKindRejected(t *testing.T) {
	userID := uuid.New()
	f := newGenerationFixture(t, userID)

	_, err := f.svc.Enqueue(context.Background(), userID, f.shot.ID, models.MediaKind("hologram"))

	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestEnqueueSceneImages_SkipsPromptlessShots(t *testing.T) {
	userID := uuid.New()
	f := newGenerationFixture(t, userID)

	promptless := models.Shot{ID: models.NewID(), SceneID: f.scene.ID, Position: 2, Type: models.ShotTypeWide}
	f.sceneRepo.On("GetByID", mock.Anything, f.scene.ID).Return(f.scene, nil)
	f.storyRepo.On("GetByID", mock.Anything, f.story.ID).Return(f.story, nil)
	f.shotRepo.On("ListByScene", mock.Anything, f.scene.ID).Return([]models.Shot{*f.shot, promptless}, nil).Once()

	f.shotRepo.On("Update", mock.Anything, mock.MatchedBy(func(shot *models.Shot) bool {
		return shot.ID == f.shot.ID
	})).Return(nil).Once()
	f.publisher.On("PublishMediaTask", mock.Anything, mock.MatchedBy(func(p messaging.MediaTaskPayload) bool {
		return p.ShotID == f.shot.ID && p.Kind == models.MediaKindImage
	})).Return(nil).Once()

	taskIDs, err := f.svc.EnqueueSceneImages(context.Background(), userID, f.scene.ID)

	require.NoError(t, err)
	assert.Len(t, taskIDs, 1, "the promptless shot is skipped, not failed")
}

func imagePayload(f *generationFixture) messaging.MediaTaskPayload {
	return messaging.MediaTaskPayload{
		TaskID:  "task-1",
		UserID:  f.story.UserID.String(),
		StoryID: f.story.ID,
		SceneID: f.scene.ID,
		ShotID:  f.shot.ID,
		Kind:    models.MediaKindImage,
	}
}

func expectOneJob(f *generationFixture, seq int64) {
	f.registry.On("Claim", mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()
	f.registry.On("NextSeq", mock.Anything, mock.Anything, mock.Anything).Return(seq, nil).Once()
	f.registry.On("Release", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func TestProcessTask_CompletesAndApplies(t *testing.T) {
	f := newGenerationFixture(t, uuid.New())
	f.shotRepo.On("GetByID", mock.Anything, f.shot.ID).Return(f.shot, nil)

	expectOneJob(f, 1)
	f.backend.On("SubmitJob", mock.Anything, mock.Anything).Return("job-1", nil).Once()
	f.backend.On("GetStatus", mock.Anything, "job-1").Return(generation.JobStatus{
		State: generation.JobStateCompleted, AssetURL: "http://backend/out.jpg",
	}, nil).Once()
	f.backend.On("FetchAsset", mock.Anything, "http://backend/out.jpg").Return([]byte("jpegdata"), nil).Once()
	f.blobStore.On("Put", mock.Anything, mock.Anything, []byte("jpegdata")).Return("http://assets/out.jpg", nil).Once()
	f.shotRepo.On("Update", mock.Anything, mock.MatchedBy(func(shot *models.Shot) bool {
		return shot.ImageURL != nil && *shot.ImageURL == "http://assets/out.jpg" &&
			shot.AppliedSeqs[string(models.MediaKindImage)] == int64(1)
	})).Return(nil).Once()

	outcome, err := f.svc.ProcessTask(context.Background(), imagePayload(f))

	require.NoError(t, err)
	assert.Equal(t, orchestrator.JobStateCompleted, outcome.State)
	assert.True(t, outcome.Applied)
	assert.Equal(t, "http://assets/out.jpg", outcome.AssetURL)
}

func TestProcessTask_SkipsTaskForEditedPrompt(t *testing.T) {
	f := newGenerationFixture(t, uuid.New())
	// The prompt was edited while the task sat in the queue; the
	// persisted snapshot no longer matches.
	f.shot.PromptSnapshots = map[string]string{string(models.MediaKindImage): "gulls over the pier"}
	f.shot.Prompt = "a storm rolling in"
	f.shotRepo.On("GetByID", mock.Anything, f.shot.ID).Return(f.shot, nil)

	outcome, err := f.svc.ProcessTask(context.Background(), imagePayload(f))

	require.NoError(t, err)
	assert.Equal(t, orchestrator.JobStateFailed, outcome.State)
	assert.Contains(t, outcome.FailureReason, "prompt changed")
	f.backend.AssertNotCalled(t, "SubmitJob", mock.Anything, mock.Anything)
	f.registry.AssertNotCalled(t, "Claim", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessTask_MatchingSnapshotRunsJob(t *testing.T) {
	f := newGenerationFixture(t, uuid.New())
	f.shot.PromptSnapshots = map[string]string{string(models.MediaKindImage): f.shot.Prompt}
	f.shotRepo.On("GetByID", mock.Anything, f.shot.ID).Return(f.shot, nil)

	expectOneJob(f, 1)
	f.backend.On("SubmitJob", mock.Anything, mock.Anything).Return("job-1", nil).Once()
	f.backend.On("GetStatus", mock.Anything, "job-1").Return(generation.JobStatus{
		State: generation.JobStateCompleted, AssetURL: "http://backend/out.jpg",
	}, nil).Once()
	f.backend.On("FetchAsset", mock.Anything, "http://backend/out.jpg").Return([]byte("jpegdata"), nil).Once()
	f.blobStore.On("Put", mock.Anything, mock.Anything, mock.Anything).Return("http://assets/out.jpg", nil).Once()
	// Applying the result consumes the pending snapshot.
	f.shotRepo.On("Update", mock.Anything, mock.MatchedBy(func(shot *models.Shot) bool {
		_, pending := shot.PromptSnapshots[string(models.MediaKindImage)]
		return !pending
	})).Return(nil).Once()

	outcome, err := f.svc.ProcessTask(context.Background(), imagePayload(f))

	require.NoError(t, err)
	assert.True(t, outcome.Applied)
}

func TestProcessTask_DiscardsStaleResult(t *testing.T) {
	f := newGenerationFixture(t, uuid.New())
	// A later job already applied its result while this one polled.
	f.shot.AppliedSeqs = map[string]int64{string(models.MediaKindImage): 9}
	f.shotRepo.On("GetByID", mock.Anything, f.shot.ID).Return(f.shot, nil)

	expectOneJob(f, 3)
	f.backend.On("SubmitJob", mock.Anything, mock.Anything).Return("job-1", nil).Once()
	f.backend.On("GetStatus", mock.Anything, "job-1").Return(generation.JobStatus{
		State: generation.JobStateCompleted, AssetURL: "http://backend/out.jpg",
	}, nil).Once()
	f.backend.On("FetchAsset", mock.Anything, "http://backend/out.jpg").Return([]byte("jpegdata"), nil).Once()
	f.blobStore.On("Put", mock.Anything, mock.Anything, mock.Anything).Return("http://assets/out.jpg", nil).Once()

	outcome, err := f.svc.ProcessTask(context.Background(), imagePayload(f))

	require.NoError(t, err)
	assert.False(t, outcome.Applied)
	f.shotRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestProcessTask_BackendFailureReported(t *testing.T) {
	f := newGenerationFixture(t, uuid.New())
	f.shotRepo.On("GetByID", mock.Anything, f.shot.ID).Return(f.shot, nil)

	expectOneJob(f, 1)
	f.backend.On("SubmitJob", mock.Anything, mock.Anything).Return("job-1", nil).Once()
	f.backend.On("GetStatus", mock.Anything, "job-1").Return(generation.JobStatus{
		State: generation.JobStateFailed, FailureReason: "capacity exhausted",
	}, nil).Once()

	outcome, err := f.svc.ProcessTask(context.Background(), imagePayload(f))

	require.NoError(t, err)
	assert.Equal(t, orchestrator.JobStateFailed, outcome.State)
	assert.Equal(t, "capacity exhausted", outcome.FailureReason)
	f.blobStore.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything)
}
