package models

import "github.com/google/uuid"

// StoryPatch is a partial update of a story record. Nil fields are left
// untouched.
type StoryPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ScenePatch is a partial update of a scene record. Nil fields are left
// untouched. ShotPatches, when present, are merged additively into the
// scene's shot list (see merge.MergeShots).
type ScenePatch struct {
	Title       *string     `json:"title,omitempty"`
	Location    *string     `json:"location,omitempty"`
	Description *string     `json:"description,omitempty"`
	Lighting    *string     `json:"lighting,omitempty"`
	Weather     *string     `json:"weather,omitempty"`
	Style       *string     `json:"style,omitempty"`
	ShotPatches []ShotPatch `json:"shots,omitempty"`
}

// ShotPatch is a field-level patch against a shot. Pointer semantics:
// nil means "absent, keep the existing value"; a non-nil empty string is
// an explicit clear. The derived Has* flags are never part of a patch;
// they are recomputed after the content fields are merged.
type ShotPatch struct {
	ID   uuid.UUID `json:"id,omitempty"` // Target shot; zero for "apply by position" inserts
	Type *ShotType `json:"type,omitempty"`

	Description  *string `json:"description,omitempty"`
	Prompt       *string `json:"prompt,omitempty"`
	Dialogue     *string `json:"dialogue,omitempty"`
	Narration    *string `json:"narration,omitempty"`
	SoundEffects *string `json:"soundEffects,omitempty"`

	LocationOverride *string `json:"locationOverride,omitempty"`
	LightingOverride *string `json:"lightingOverride,omitempty"`
	WeatherOverride  *string `json:"weatherOverride,omitempty"`

	ImageURL             *string `json:"imageUrl,omitempty"`
	VideoURL             *string `json:"videoUrl,omitempty"`
	DialogueAudioURL     *string `json:"dialogueAudioUrl,omitempty"`
	SoundEffectsAudioURL *string `json:"soundEffectsAudioUrl,omitempty"`
	LipSyncVideoURL      *string `json:"lipSyncVideoUrl,omitempty"`

	VoiceID *string `json:"voiceId,omitempty"`
}
