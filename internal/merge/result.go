package merge

import (
	"storyboard-server/internal/models"
)

// ApplyAssetResult folds a completed generation-job result into a shot.
//
// Two guards keep stale results out:
//   - sequence guard: a result whose submission sequence is not newer
//     than the shot's last-applied sequence for that kind is discarded,
//     so completions always land in submission order;
//   - prompt snapshot guard: for prompt-driven kinds, a result whose
//     submission-time prompt no longer matches the shot's current prompt
//     is discarded (the user edited the shot while the job was polling).
//
// The boolean return reports whether the result was applied.
func ApplyAssetResult(shot models.Shot, kind models.MediaKind, assetURL string, seq int64, promptSnapshot string) (models.Shot, bool) {
	if assetURL == "" {
		return shot, false
	}
	if last, ok := shot.AppliedSeqs[string(kind)]; ok && seq <= last {
		return shot, false
	}
	if promptSnapshot != "" && promptDriven(kind) && promptSnapshot != shot.Prompt {
		return shot, false
	}

	merged := shot
	setAssetURL(&merged, kind, assetURL)

	merged.AppliedSeqs = cloneSeqs(shot.AppliedSeqs)
	merged.AppliedSeqs[string(kind)] = seq

	if len(shot.PromptSnapshots) > 0 {
		merged.PromptSnapshots = make(map[string]string, len(shot.PromptSnapshots))
		for k, v := range shot.PromptSnapshots {
			if k != string(kind) {
				merged.PromptSnapshots[k] = v
			}
		}
	}

	merged.RecomputeFlags()
	return merged, true
}

func promptDriven(kind models.MediaKind) bool {
	return kind == models.MediaKindImage || kind == models.MediaKindVideo
}

func setAssetURL(shot *models.Shot, kind models.MediaKind, url string) {
	switch kind {
	case models.MediaKindImage:
		shot.ImageURL = &url
	case models.MediaKindVideo:
		shot.VideoURL = &url
	case models.MediaKindDialogueAudio:
		shot.DialogueAudioURL = &url
	case models.MediaKindSoundEffectsAudio:
		shot.SoundEffectsAudioURL = &url
	case models.MediaKindLipSyncVideo:
		shot.LipSyncVideoURL = &url
	}
}

func cloneSeqs(seqs map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(seqs)+1)
	for k, v := range seqs {
		out[k] = v
	}
	return out
}
