package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ShotType is the fixed vocabulary of shot framing tags.
type ShotType string

const (
	ShotTypeEstablishing ShotType = "establishing"
	ShotTypeWide         ShotType = "wide"
	ShotTypeMedium       ShotType = "medium"
	ShotTypeCloseUp      ShotType = "close-up"
	ShotTypeTracking     ShotType = "tracking"
	ShotTypePOV          ShotType = "pov"
	ShotTypeAerial       ShotType = "aerial"
)

// IsValidShotType reports whether t belongs to the fixed vocabulary.
func IsValidShotType(t ShotType) bool {
	switch t {
	case ShotTypeEstablishing, ShotTypeWide, ShotTypeMedium, ShotTypeCloseUp, ShotTypeTracking, ShotTypePOV, ShotTypeAerial:
		return true
	default:
		return false
	}
}

// Story is the root narrative aggregate.
type Story struct {
	ID          uuid.UUID `db:"id" json:"id"`
	UserID      uuid.UUID `db:"user_id" json:"userId"`
	Title       string    `db:"title" json:"title"`
	Description string    `db:"description" json:"description"` // Free-text description / source script
	// EmbeddedScenes is the legacy inline representation of the scene list.
	// NULL once a story has been migrated to child records. Hierarchical
	// children are authoritative whenever both representations exist.
	EmbeddedScenes json.RawMessage `db:"embedded_scenes" json:"embeddedScenes,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updatedAt"`

	// Scenes is populated on hydrated reads. Not a column.
	Scenes []Scene `db:"-" json:"scenes,omitempty"`
}

// Scene is an ordered container of shots with its own descriptive metadata.
type Scene struct {
	ID          uuid.UUID `db:"id" json:"id"`
	StoryID     uuid.UUID `db:"story_id" json:"storyId"`
	Position    int       `db:"position" json:"position"`
	Title       string    `db:"title" json:"title"`
	Location    string    `db:"location" json:"location"`
	Description string    `db:"description" json:"description"`
	Lighting    string    `db:"lighting" json:"lighting"`
	Weather     string    `db:"weather" json:"weather"`
	Style       string    `db:"style" json:"style"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`

	// Shots is populated on hydrated reads and inside the embedded
	// representation. Not a column.
	Shots []Shot `db:"-" json:"shots,omitempty"`
}

// Shot is the atomic unit of narrative content.
type Shot struct {
	ID       uuid.UUID `db:"id" json:"id"`
	SceneID  uuid.UUID `db:"scene_id" json:"sceneId"`
	Position int       `db:"position" json:"position"`
	Type     ShotType  `db:"shot_type" json:"type"`

	Description  string `db:"description" json:"description"`
	Prompt       string `db:"prompt" json:"prompt"` // Defaults to Description when not overridden
	Dialogue     string `db:"dialogue" json:"dialogue,omitempty"`
	Narration    string `db:"narration" json:"narration,omitempty"`
	SoundEffects string `db:"sound_effects" json:"soundEffects,omitempty"`

	// Derived flags. Recomputed from the text fields at every merge
	// boundary; stored values from legacy data are untrusted until then.
	HasDialogue     bool `db:"has_dialogue" json:"hasDialogue"`
	HasNarration    bool `db:"has_narration" json:"hasNarration"`
	HasSoundEffects bool `db:"has_sound_effects" json:"hasSoundEffects"`

	// Per-shot overrides of scene metadata, used as generation hints.
	LocationOverride *string `db:"location_override" json:"locationOverride,omitempty"`
	LightingOverride *string `db:"lighting_override" json:"lightingOverride,omitempty"`
	WeatherOverride  *string `db:"weather_override" json:"weatherOverride,omitempty"`

	// Generated asset references. Opaque URLs owned by this shot.
	ImageURL             *string `db:"image_url" json:"imageUrl,omitempty"`
	VideoURL             *string `db:"video_url" json:"videoUrl,omitempty"`
	DialogueAudioURL     *string `db:"dialogue_audio_url" json:"dialogueAudioUrl,omitempty"`
	SoundEffectsAudioURL *string `db:"sound_effects_audio_url" json:"soundEffectsAudioUrl,omitempty"`
	LipSyncVideoURL      *string `db:"lipsync_video_url" json:"lipSyncVideoUrl,omitempty"`

	VoiceID *string `db:"voice_id" json:"voiceId,omitempty"`

	// AppliedSeqs records, per media kind, the submission sequence of the
	// last job result applied to this shot. Older results are discarded.
	AppliedSeqs map[string]int64 `db:"applied_seqs" json:"appliedSeqs,omitempty"`
	// PromptSnapshots records, per media kind, the prompt a still-pending
	// job was submitted with. A completion whose snapshot no longer
	// matches the current prompt is discarded as stale.
	PromptSnapshots map[string]string `db:"prompt_snapshots" json:"promptSnapshots,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// RecomputeFlags re-derives the boolean content flags from their source
// text fields. Flags and content must never disagree after a merge.
func (s *Shot) RecomputeFlags() {
	s.HasDialogue = s.Dialogue != ""
	s.HasNarration = s.Narration != ""
	s.HasSoundEffects = s.SoundEffects != ""
}

// AssetURL returns the asset reference currently held for the given kind.
func (s *Shot) AssetURL(kind MediaKind) *string {
	switch kind {
	case MediaKindImage:
		return s.ImageURL
	case MediaKindVideo:
		return s.VideoURL
	case MediaKindDialogueAudio:
		return s.DialogueAudioURL
	case MediaKindSoundEffectsAudio:
		return s.SoundEffectsAudioURL
	case MediaKindLipSyncVideo:
		return s.LipSyncVideoURL
	default:
		return nil
	}
}
