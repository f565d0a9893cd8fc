// Package merge implements field-level, non-destructive reconciliation of
// patches and generation-job results against shot and scene state. Every
// write to a shot, whether from a user edit or a completed job, passes
// through this package.
package merge

import (
	"github.com/google/uuid"

	"storyboard-server/internal/models"
)

// MergeShot applies a field-level patch to a shot.
//
// Patch fields use pointer semantics: nil means absent and the existing
// value is retained, so a patch can never silently erase a populated
// field. A non-nil empty string is an explicit clear. The derived
// content flags are never taken from the patch; they are recomputed
// from the merged text fields.
func MergeShot(existing models.Shot, patch models.ShotPatch) models.Shot {
	merged := existing

	if patch.Type != nil && models.IsValidShotType(*patch.Type) {
		merged.Type = *patch.Type
	}

	applyText(&merged.Description, patch.Description)
	applyText(&merged.Prompt, patch.Prompt)
	applyText(&merged.Dialogue, patch.Dialogue)
	applyText(&merged.Narration, patch.Narration)
	applyText(&merged.SoundEffects, patch.SoundEffects)

	applyOptional(&merged.LocationOverride, patch.LocationOverride)
	applyOptional(&merged.LightingOverride, patch.LightingOverride)
	applyOptional(&merged.WeatherOverride, patch.WeatherOverride)

	applyOptional(&merged.ImageURL, patch.ImageURL)
	applyOptional(&merged.VideoURL, patch.VideoURL)
	applyOptional(&merged.DialogueAudioURL, patch.DialogueAudioURL)
	applyOptional(&merged.SoundEffectsAudioURL, patch.SoundEffectsAudioURL)
	applyOptional(&merged.LipSyncVideoURL, patch.LipSyncVideoURL)

	applyOptional(&merged.VoiceID, patch.VoiceID)

	// An edited description re-arms the default prompt unless the prompt
	// was overridden, either before or in this patch.
	if patch.Description != nil && patch.Prompt == nil && existing.Prompt == existing.Description {
		merged.Prompt = merged.Description
	}

	merged.RecomputeFlags()
	return merged
}

// MergeShots merges a patch set into an existing shot list. The merge is
// additive and updating, never a full replace: existing shots absent
// from the patch set remain, patches matching an existing ID update it
// in place, and patches with unknown or zero IDs are appended as new
// shots in the patch's given order. Positions are renumbered afterwards.
func MergeShots(existing []models.Shot, patches []models.ShotPatch) []models.Shot {
	byID := make(map[string]int, len(existing))
	merged := make([]models.Shot, len(existing))
	copy(merged, existing)
	for i, s := range merged {
		byID[s.ID.String()] = i
	}

	for _, p := range patches {
		if idx, ok := byID[p.ID.String()]; ok && p.ID != uuid.Nil {
			merged[idx] = MergeShot(merged[idx], p)
			continue
		}
		merged = append(merged, newShotFromPatch(p))
	}

	for i := range merged {
		merged[i].Position = i + 1
	}
	return merged
}

// newShotFromPatch materializes a shot for a patch that references no
// existing shot. Every branch has a defined default, so insertion cannot
// fail.
func newShotFromPatch(p models.ShotPatch) models.Shot {
	shot := models.Shot{
		ID:   p.ID,
		Type: models.ShotTypeEstablishing,
	}
	if shot.ID == uuid.Nil {
		shot.ID = models.NewID()
	}
	merged := MergeShot(shot, p)
	if merged.Prompt == "" {
		merged.Prompt = merged.Description
	}
	merged.RecomputeFlags()
	return merged
}

func applyText(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func applyOptional(dst **string, src *string) {
	if src == nil {
		return
	}
	if *src == "" {
		*dst = nil
		return
	}
	v := *src
	*dst = &v
}
