package orchestrator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storyboard-server/internal/generation"
	"storyboard-server/internal/mocks"
	"storyboard-server/internal/models"
	"storyboard-server/internal/orchestrator"
)

func shotWithVideo() *models.Shot {
	shot := testShot()
	url := "http://assets/video.mp4"
	shot.VideoURL = &url
	return shot
}

func TestRunLipSyncPipeline_RequiresVideo(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindDialogueAudio, models.MediaKindLipSyncVideo)

	_, err := orch.RunLipSyncPipeline(context.Background(), "task-1", testShot(), "voice-1")

	assert.ErrorIs(t, err, models.ErrPrecondition)
	backend.AssertNotCalled(t, "SubmitJob", mock.Anything, mock.Anything)
}

func TestRunLipSyncPipeline_RequiresDialogue(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindDialogueAudio, models.MediaKindLipSyncVideo)

	shot := shotWithVideo()
	shot.Dialogue = ""

	_, err := orch.RunLipSyncPipeline(context.Background(), "task-1", shot, "voice-1")

	assert.ErrorIs(t, err, models.ErrPrecondition)
}

func TestRunLipSyncPipeline_SequencesStages(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindDialogueAudio, models.MediaKindLipSyncVideo)

	registry.On("Claim", mock.Anything, mock.Anything, mock.Anything).Return(true, nil)
	registry.On("NextSeq", mock.Anything, mock.Anything, mock.Anything).Return(int64(1), nil).Once()
	registry.On("NextSeq", mock.Anything, mock.Anything, mock.Anything).Return(int64(2), nil).Once()
	registry.On("Release", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	backend.On("SubmitJob", mock.Anything, mock.MatchedBy(func(p generation.Params) bool {
		_, isAudio := p["text"]
		return isAudio
	})).Return("audio-job", nil).Once()
	backend.On("GetStatus", mock.Anything, "audio-job").Return(generation.JobStatus{State: generation.JobStateCompleted, AssetURL: "http://backend/audio.mp3"}, nil).Once()

	// The lip-sync stage must consume the audio stage's output.
	backend.On("SubmitJob", mock.Anything, mock.MatchedBy(func(p generation.Params) bool {
		return p["audio_url"] == "http://backend/audio.mp3" && p["video_url"] == "http://assets/video.mp4"
	})).Return("lipsync-job", nil).Once()
	backend.On("GetStatus", mock.Anything, "lipsync-job").Return(generation.JobStatus{State: generation.JobStateCompleted, AssetURL: "http://backend/lipsync.mp4"}, nil).Once()

	outcome, err := orch.RunLipSyncPipeline(context.Background(), "task-1", shotWithVideo(), "voice-1")

	require.NoError(t, err)
	assert.Equal(t, orchestrator.JobStateCompleted, outcome.Audio.State)
	assert.Equal(t, orchestrator.JobStateCompleted, outcome.LipSync.State)
	assert.Equal(t, "http://backend/lipsync.mp4", outcome.LipSync.AssetURL)
	assert.Equal(t, int64(1), outcome.AudioSeq)
	assert.Equal(t, int64(2), outcome.LipSyncSeq)
}

func TestRunLipSyncPipeline_StopsWhenAudioFails(t *testing.T) {
	backend := mocks.NewMockBackend(t)
	registry := mocks.NewMockRegistry(t)
	orch := newOrchestrator(t, backend, registry, models.MediaKindDialogueAudio, models.MediaKindLipSyncVideo)

	expectClaim(registry, 1)
	backend.On("SubmitJob", mock.Anything, mock.Anything).Return("audio-job", nil).Once()
	backend.On("GetStatus", mock.Anything, "audio-job").Return(generation.JobStatus{State: generation.JobStateFailed, FailureReason: "voice unavailable"}, nil).Once()

	outcome, err := orch.RunLipSyncPipeline(context.Background(), "task-1", shotWithVideo(), "voice-1")

	require.NoError(t, err)
	assert.Equal(t, orchestrator.JobStateFailed, outcome.Audio.State)
	assert.Empty(t, outcome.LipSync.State, "second stage must not start after a failed first stage")
	backend.AssertNumberOfCalls(t, "SubmitJob", 1)
}
