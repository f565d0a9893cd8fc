package orchestrator_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyboard-server/internal/generation"
	"storyboard-server/internal/mocks"
	"storyboard-server/internal/models"
	"storyboard-server/internal/orchestrator"
)

func fastConfig() orchestrator.Config {
	return orchestrator.Config{
		PollInterval:     10 * time.Millisecond,
		CheckTimeout:     50 * time.Millisecond,
		MaxCheckFailures: 3,
		Deadlines: map[models.MediaKind]time.Duration{
			models.MediaKindImage:         100 * time.Millisecond,
			models.MediaKindDialogueAudio: 100 * time.Millisecond,
			models.MediaKindLipSyncVideo:  100 * time.Millisecond,
		},
	}
}

func testShot() *models.Shot {
	shot := &models.Shot{
		ID:          models.NewID(),
		Type:        models.ShotTypeWide,
		Description: "a lighthouse at dusk",
		Prompt:      "a lighthouse at dusk",
		Dialogue:    "keep the light burning",
	}
	shot.RecomputeFlags()
	return shot
}

func newOrchestrator(t *testing.T, backend *mocks.MockBackend, registry *mocks.MockRegistry, kinds ...models.MediaKind) *orchestrator.Orchestrator {
	t.Helper()
	backends := make(map[models.MediaKind]generation.Backend, len(kinds))
	for _, kind := range kinds {
		backends[kind] = backend
	}
	return orchestrator.New(zap.NewNop(), backends, registry, nil, fastConfig())
}

func expectClaim(registry *mocks.MockRegistry, seq int64) {
	registry.On("Claim", mock.Anything, mock.Anything, mock.Anything).Return(true, nil).Once()
	registry.On("NextSeq", mock.Anything, mock.Anything, mock.Anything).Return(seq, nil).Once()
	registry.On("Release", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func TestSubmit_SnapshotsPromptAndSeq(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindImage)

	expectClaim(registry, 7)
	backend.On("SubmitJob", mock.Anything, mock.Anything).Return("job-1", nil).Once()

	shot := testShot()
	job, err := orch.Submit(context.Background(), "task-1", shot, models.MediaKindImage, generation.Params{"prompt": shot.Prompt})

	require.NoError(t, err)
	assert.Equal(t, "job-1", job.BackendJobID)
	assert.Equal(t, int64(7), job.Seq)
	assert.Equal(t, shot.Prompt, job.PromptSnapshot)
	assert.Equal(t, orchestrator.JobStatePolling, job.State)
}

func TestSubmit_ActiveClaimIsNoOp(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindImage)

	registry.On("Claim", mock.Anything, mock.Anything, mock.Anything).Return(false, nil).Once()

	_, err := orch.Submit(context.Background(), "task-1", testShot(), models.MediaKindImage, nil)

	assert.ErrorIs(t, err, models.ErrJobAlreadyActive)
	backend.AssertNotCalled(t, "SubmitJob", mock.Anything, mock.Anything)
}

func TestSubmit_UnknownKindRejected(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindImage)

	_, err := orch.Submit(context.Background(), "task-1", testShot(), models.MediaKindVideo, nil)

	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestSubmit_EmptyJobIDFailsAndReleases(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindImage)

	expectClaim(registry, 1)
	backend.On("SubmitJob", mock.Anything, mock.Anything).Return("", nil).Once()

	_, err := orch.Submit(context.Background(), "task-1", testShot(), models.MediaKindImage, nil)

	assert.ErrorIs(t, err, models.ErrBackend)
	registry.AssertCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}

func TestAwaitCompletion_Completed(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindImage)

	expectClaim(registry, 1)
	backend.On("SubmitJob", mock.Anything, mock.Anything).Return("job-1", nil).Once()
	backend.On("GetStatus", mock.Anything, "job-1").Return(generation.JobStatus{State: generation.JobStateRunning}, nil).Once()
	backend.On("GetStatus", mock.Anything, "job-1").Return(generation.JobStatus{State: generation.JobStateCompleted, AssetURL: "http://backend/asset.jpg"}, nil).Once()

	job, err := orch.Submit(context.Background(), "task-1", testShot(), models.MediaKindImage, nil)
	require.NoError(t, err)
	result := orch.AwaitCompletion(context.Background(), job)

	assert.Equal(t, orchestrator.JobStateCompleted, result.State)
	assert.Equal(t, "http://backend/asset.jpg", result.AssetURL)
}

func TestAwaitCompletion_TerminatesWithinDeadline(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindImage)

	expectClaim(registry, 1)
	backend.On("SubmitJob", mock.Anything, mock.Anything).Return("job-1", nil).Once()
	// The backend never reaches a terminal state.
	backend.On("GetStatus", mock.Anything, "job-1").Return(generation.JobStatus{State: generation.JobStateRunning}, nil)

	job, err := orch.Submit(context.Background(), "task-1", testShot(), models.MediaKindImage, nil)
	require.NoError(t, err)

	start := time.Now()
	result := orch.AwaitCompletion(context.Background(), job)
	elapsed := time.Since(start)

	assert.Equal(t, orchestrator.JobStateTimedOut, result.State)
	deadline := fastConfig().Deadlines[models.MediaKindImage]
	assert.Less(t, elapsed, deadline+5*fastConfig().PollInterval, "must return within deadline plus one interval")
}

func TestAwaitCompletion_BackendFailure(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindImage)

	expectClaim(registry, 1)
	backend.On("SubmitJob", mock.Anything, mock.Anything).Return("job-1", nil).Once()
	backend.On("GetStatus", mock.Anything, "job-1").Return(generation.JobStatus{State: generation.JobStateFailed, FailureReason: "nsfw filter"}, nil).Once()

	job, err := orch.Submit(context.Background(), "task-1", testShot(), models.MediaKindImage, nil)
	require.NoError(t, err)
	result := orch.AwaitCompletion(context.Background(), job)

	assert.Equal(t, orchestrator.JobStateFailed, result.State)
	assert.Equal(t, "nsfw filter", result.FailureReason)
}

func TestAwaitCompletion_ConsecutiveCheckFailureBudget(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindImage)

	expectClaim(registry, 1)
	backend.On("SubmitJob", mock.Anything, mock.Anything).Return("job-1", nil).Once()
	backend.On("GetStatus", mock.Anything, "job-1").Return(generation.JobStatus{}, errors.New("connection refused"))

	job, err := orch.Submit(context.Background(), "task-1", testShot(), models.MediaKindImage, nil)
	require.NoError(t, err)
	result := orch.AwaitCompletion(context.Background(), job)

	assert.Equal(t, orchestrator.JobStateFailed, result.State)
	assert.Contains(t, result.FailureReason, "3 times in a row")
	backend.AssertNumberOfCalls(t, "GetStatus", 3)
}

func TestAwaitCompletion_SingleCheckErrorIsRetried(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindImage)

	expectClaim(registry, 1)
	backend.On("SubmitJob", mock.Anything, mock.Anything).Return("job-1", nil).Once()
	backend.On("GetStatus", mock.Anything, "job-1").Return(generation.JobStatus{}, errors.New("flaky")).Once()
	backend.On("GetStatus", mock.Anything, "job-1").Return(generation.JobStatus{State: generation.JobStateCompleted, AssetURL: "http://backend/asset.jpg"}, nil).Once()

	job, err := orch.Submit(context.Background(), "task-1", testShot(), models.MediaKindImage, nil)
	require.NoError(t, err)
	result := orch.AwaitCompletion(context.Background(), job)

	assert.Equal(t, orchestrator.JobStateCompleted, result.State)
}

func TestAwaitCompletion_CompletedWithoutURLFails(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindImage)

	expectClaim(registry, 1)
	backend.On("SubmitJob", mock.Anything, mock.Anything).Return("job-1", nil).Once()
	backend.On("GetStatus", mock.Anything, "job-1").Return(generation.JobStatus{State: generation.JobStateCompleted}, nil).Once()

	job, err := orch.Submit(context.Background(), "task-1", testShot(), models.MediaKindImage, nil)
	require.NoError(t, err)
	result := orch.AwaitCompletion(context.Background(), job)

	assert.Equal(t, orchestrator.JobStateFailed, result.State)
}

func TestAwaitCompletion_CancellationStopsPolling(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindImage)

	expectClaim(registry, 1)
	backend.On("SubmitJob", mock.Anything, mock.Anything).Return("job-1", nil).Once()
	backend.On("GetStatus", mock.Anything, "job-1").Return(generation.JobStatus{State: generation.JobStateRunning}, nil).Maybe()

	ctx, cancel := context.WithCancel(context.Background())
	job, err := orch.Submit(ctx, "task-1", testShot(), models.MediaKindImage, nil)
	require.NoError(t, err)

	go func() {
		time.Sleep(25 * time.Millisecond)
		cancel()
	}()
	result := orch.AwaitCompletion(ctx, job)

	assert.Equal(t, orchestrator.JobStateFailed, result.State)
	registry.AssertCalled(t, "Release", mock.Anything, mock.Anything, mock.Anything)
}
