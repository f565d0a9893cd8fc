package merge_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyboard-server/internal/merge"
	"storyboard-server/internal/models"
)

func TestApplyAssetResult_SetsURLAndSeq(t *testing.T) {
	shot := baseShot()

	merged, applied := merge.ApplyAssetResult(shot, models.MediaKindImage, "http://assets/img.jpg", 1, shot.Prompt)

	require.True(t, applied)
	require.NotNil(t, merged.ImageURL)
	assert.Equal(t, "http://assets/img.jpg", *merged.ImageURL)
	assert.Equal(t, int64(1), merged.AppliedSeqs[string(models.MediaKindImage)])
}

func TestApplyAssetResult_RejectsStaleSeq(t *testing.T) {
	shot := baseShot()
	shot.AppliedSeqs = map[string]int64{string(models.MediaKindImage): 5}

	merged, applied := merge.ApplyAssetResult(shot, models.MediaKindImage, "http://assets/old.jpg", 4, shot.Prompt)

	assert.False(t, applied)
	assert.Nil(t, merged.ImageURL)
	assert.Equal(t, int64(5), merged.AppliedSeqs[string(models.MediaKindImage)])

	// Equal sequence is also stale: results land strictly in order.
	_, applied = merge.ApplyAssetResult(shot, models.MediaKindImage, "http://assets/same.jpg", 5, shot.Prompt)
	assert.False(t, applied)
}

func TestApplyAssetResult_RejectsChangedPrompt(t *testing.T) {
	shot := baseShot()

	_, applied := merge.ApplyAssetResult(shot, models.MediaKindImage, "http://assets/img.jpg", 1, "the prompt this job ran with")

	assert.False(t, applied, "result for an outdated prompt must be discarded")
}

func TestApplyAssetResult_PromptGuardSkippedForAudio(t *testing.T) {
	shot := baseShot()

	merged, applied := merge.ApplyAssetResult(shot, models.MediaKindDialogueAudio, "http://assets/audio.mp3", 1, "irrelevant snapshot")

	require.True(t, applied, "audio kinds are not prompt-driven")
	require.NotNil(t, merged.DialogueAudioURL)
}

func TestApplyAssetResult_RejectsEmptyURL(t *testing.T) {
	shot := baseShot()

	_, applied := merge.ApplyAssetResult(shot, models.MediaKindVideo, "", 1, shot.Prompt)

	assert.False(t, applied)
}

func TestApplyAssetResult_ClearsPendingSnapshot(t *testing.T) {
	shot := baseShot()
	shot.PromptSnapshots = map[string]string{
		string(models.MediaKindImage): shot.Prompt,
		string(models.MediaKindVideo): shot.Prompt,
	}

	merged, applied := merge.ApplyAssetResult(shot, models.MediaKindImage, "http://assets/img.jpg", 1, shot.Prompt)

	require.True(t, applied)
	_, stillPending := merged.PromptSnapshots[string(models.MediaKindImage)]
	assert.False(t, stillPending)
	_, otherKept := merged.PromptSnapshots[string(models.MediaKindVideo)]
	assert.True(t, otherKept)
}

func TestApplyAssetResult_DoesNotMutateInput(t *testing.T) {
	shot := baseShot()
	shot.AppliedSeqs = map[string]int64{string(models.MediaKindVideo): 2}

	_, applied := merge.ApplyAssetResult(shot, models.MediaKindImage, "http://assets/img.jpg", 1, shot.Prompt)

	require.True(t, applied)
	assert.Nil(t, shot.ImageURL)
	assert.NotContains(t, shot.AppliedSeqs, string(models.MediaKindImage))
}
