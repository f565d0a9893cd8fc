package orchestrator

import (
	"context"
	"fmt"

	"storyboard-server/internal/generation"
	"storyboard-server/internal/models"
)

// LipSyncOutcome holds the results of both stages of the lip-sync
// pipeline. LipSync is zero-valued when the audio stage did not complete.
type LipSyncOutcome struct {
	Audio      Result
	AudioSeq   int64
	LipSync    Result
	LipSyncSeq int64
}

// RunLipSyncPipeline runs the two dependent jobs behind a lip-sync
// request: dialogue text-to-speech first, then the lip-sync job
// consuming that audio plus the shot's existing video.
//
// Preconditions are checked before anything is submitted: the shot must
// already hold a completed video asset and a dialogue text. Violations
// fail fast with models.ErrPrecondition instead of starting a job that
// is expected to fail remotely. The second stage starts only once the
// first reaches completion.
func (o *Orchestrator) RunLipSyncPipeline(ctx context.Context, taskID string, shot *models.Shot, voiceID string) (LipSyncOutcome, error) {
	var outcome LipSyncOutcome

	if shot.VideoURL == nil || *shot.VideoURL == "" {
		return outcome, fmt.Errorf("%w: lip-sync requires a completed video asset on the shot", models.ErrPrecondition)
	}
	if shot.Dialogue == "" {
		return outcome, fmt.Errorf("%w: lip-sync requires dialogue text on the shot", models.ErrPrecondition)
	}
	if voiceID == "" && shot.VoiceID != nil {
		voiceID = *shot.VoiceID
	}

	audioJob, err := o.Submit(ctx, taskID, shot, models.MediaKindDialogueAudio, generation.Params{
		"text":  shot.Dialogue,
		"voice": voiceID,
	})
	if err != nil {
		return outcome, err
	}
	outcome.AudioSeq = audioJob.Seq
	outcome.Audio = o.AwaitCompletion(ctx, audioJob)
	if outcome.Audio.State != JobStateCompleted {
		return outcome, nil
	}

	lipSyncJob, err := o.Submit(ctx, taskID, shot, models.MediaKindLipSyncVideo, generation.Params{
		"video_url": *shot.VideoURL,
		"audio_url": outcome.Audio.AssetURL,
	})
	if err != nil {
		return outcome, err
	}
	outcome.LipSyncSeq = lipSyncJob.Seq
	outcome.LipSync = o.AwaitCompletion(ctx, lipSyncJob)
	return outcome, nil
}
