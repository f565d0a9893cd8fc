package merge_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyboard-server/internal/merge"
	"storyboard-server/internal/models"
)

func ptr(s string) *string { return &s }

func baseShot() models.Shot {
	shot := models.Shot{
		ID:           uuid.New(),
		SceneID:      uuid.New(),
		Position:     1,
		Type:         models.ShotTypeWide,
		Description:  "a wide field",
		Prompt:       "a wide field",
		Dialogue:     "hello there",
		Narration:    "it was morning",
		SoundEffects: "birdsong",
		VoiceID:      ptr("narrator-en-1"),
	}
	shot.RecomputeFlags()
	return shot
}

func TestMergeShot_AbsentFieldsRetained(t *testing.T) {
	existing := baseShot()

	merged := merge.MergeShot(existing, models.ShotPatch{})

	assert.Equal(t, existing.Description, merged.Description)
	assert.Equal(t, existing.Prompt, merged.Prompt)
	assert.Equal(t, existing.Dialogue, merged.Dialogue)
	assert.Equal(t, existing.Narration, merged.Narration)
	assert.Equal(t, existing.SoundEffects, merged.SoundEffects)
	assert.Equal(t, existing.VoiceID, merged.VoiceID)
	assert.Equal(t, existing.Type, merged.Type)
}

func TestMergeShot_ExplicitEmptyClears(t *testing.T) {
	existing := baseShot()

	merged := merge.MergeShot(existing, models.ShotPatch{Dialogue: ptr("")})

	assert.Empty(t, merged.Dialogue)
	assert.False(t, merged.HasDialogue)
	// Untouched siblings keep their flags.
	assert.True(t, merged.HasNarration)
	assert.True(t, merged.HasSoundEffects)
}

func TestMergeShot_FlagsAlwaysDerivedFromContent(t *testing.T) {
	existing := baseShot()
	// Stored flags lie; the merge must not trust them.
	existing.HasDialogue = false
	existing.HasNarration = true
	existing.Narration = ""

	merged := merge.MergeShot(existing, models.ShotPatch{})

	assert.True(t, merged.HasDialogue)
	assert.False(t, merged.HasNarration)
	assert.Equal(t, merged.Dialogue != "", merged.HasDialogue)
	assert.Equal(t, merged.Narration != "", merged.HasNarration)
	assert.Equal(t, merged.SoundEffects != "", merged.HasSoundEffects)
}

func TestMergeShot_SetAndClearOptionalFields(t *testing.T) {
	existing := baseShot()
	existing.LocationOverride = ptr("the barn")

	merged := merge.MergeShot(existing, models.ShotPatch{
		LocationOverride: ptr(""),        // explicit clear
		LightingOverride: ptr("candles"), // set
	})

	assert.Nil(t, merged.LocationOverride)
	require.NotNil(t, merged.LightingOverride)
	assert.Equal(t, "candles", *merged.LightingOverride)
	assert.Nil(t, merged.WeatherOverride)
}

func TestMergeShot_InvalidTypeIgnored(t *testing.T) {
	existing := baseShot()
	bogus := models.ShotType("dolly-zoom")

	merged := merge.MergeShot(existing, models.ShotPatch{Type: &bogus})

	assert.Equal(t, models.ShotTypeWide, merged.Type)
}

func TestMergeShot_DescriptionEditRearmsDefaultPrompt(t *testing.T) {
	existing := baseShot() // prompt tracks description

	merged := merge.MergeShot(existing, models.ShotPatch{Description: ptr("a narrow alley")})
	assert.Equal(t, "a narrow alley", merged.Prompt, "default prompt follows the description")

	custom := baseShot()
	custom.Prompt = "hand-tuned prompt"
	merged = merge.MergeShot(custom, models.ShotPatch{Description: ptr("a narrow alley")})
	assert.Equal(t, "hand-tuned prompt", merged.Prompt, "overridden prompt is preserved")
}

func TestMergeShots_AdditiveUpdate(t *testing.T) {
	first := baseShot()
	second := baseShot()
	existing := []models.Shot{first, second}

	newID := uuid.New()
	patches := []models.ShotPatch{
		{ID: first.ID, Dialogue: ptr("updated line")},
		{ID: newID, Description: ptr("a brand new shot")},
	}

	merged := merge.MergeShots(existing, patches)

	require.Len(t, merged, 3)
	assert.Equal(t, "updated line", merged[0].Dialogue)
	assert.Equal(t, second.Dialogue, merged[1].Dialogue, "shots absent from the patch set remain")
	assert.Equal(t, newID, merged[2].ID)
	assert.Equal(t, "a brand new shot", merged[2].Description)
	assert.Equal(t, merged[2].Description, merged[2].Prompt)

	for i, shot := range merged {
		assert.Equal(t, i+1, shot.Position)
	}
}

func TestMergeShots_ZeroIDAppends(t *testing.T) {
	existing := []models.Shot{baseShot()}

	merged := merge.MergeShots(existing, []models.ShotPatch{{Description: ptr("appended")}})

	require.Len(t, merged, 2)
	assert.NotEqual(t, uuid.Nil, merged[1].ID)
	assert.Equal(t, models.ShotTypeEstablishing, merged[1].Type)
}
