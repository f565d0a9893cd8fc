package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"storyboard-server/internal/models"
)

var _ ShotRepository = (*pgShotRepository)(nil)

type pgShotRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPgShotRepository(db DBTX, logger *zap.Logger) ShotRepository {
	return &pgShotRepository{
		db:     db,
		logger: logger.Named("PgShotRepo"),
	}
}

const shotColumns = `
id, scene_id, position, shot_type, description, prompt, dialogue, narration, sound_effects,
has_dialogue, has_narration, has_sound_effects,
location_override, lighting_override, weather_override,
image_url, video_url, dialogue_audio_url, sound_effects_audio_url, lipsync_video_url,
voice_id, applied_seqs, prompt_snapshots, created_at, updated_at`

const createShotQuery = `
INSERT INTO shots (` + shotColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)`

const getShotByIDQuery = `SELECT ` + shotColumns + ` FROM shots WHERE id = $1`

const listShotsBySceneQuery = `
SELECT ` + shotColumns + ` FROM shots
WHERE scene_id = $1
ORDER BY position ASC, created_at ASC`

const countShotsBySceneQuery = `SELECT COUNT(*) FROM shots WHERE scene_id = $1`

const updateShotQuery = `
UPDATE shots
SET position = $2, shot_type = $3, description = $4, prompt = $5,
    dialogue = $6, narration = $7, sound_effects = $8,
    has_dialogue = $9, has_narration = $10, has_sound_effects = $11,
    location_override = $12, lighting_override = $13, weather_override = $14,
    image_url = $15, video_url = $16, dialogue_audio_url = $17,
    sound_effects_audio_url = $18, lipsync_video_url = $19,
    voice_id = $20, applied_seqs = $21, prompt_snapshots = $22, updated_at = $23
WHERE id = $1`

const deleteShotQuery = `DELETE FROM shots WHERE id = $1`

// Create inserts a new shot child record. Derived flags are recomputed
// before the write so stored flags can never disagree with their text.
func (r *pgShotRepository) Create(ctx context.Context, shot *models.Shot) error {
	if shot.ID == uuid.Nil {
		shot.ID = models.NewID()
	}
	now := time.Now().UTC()
	if shot.CreatedAt.IsZero() {
		shot.CreatedAt = now
	}
	shot.UpdatedAt = now
	shot.RecomputeFlags()

	_, err := r.db.Exec(ctx, createShotQuery,
		shot.ID, shot.SceneID, shot.Position, shot.Type,
		shot.Description, shot.Prompt, shot.Dialogue, shot.Narration, shot.SoundEffects,
		shot.HasDialogue, shot.HasNarration, shot.HasSoundEffects,
		shot.LocationOverride, shot.LightingOverride, shot.WeatherOverride,
		shot.ImageURL, shot.VideoURL, shot.DialogueAudioURL, shot.SoundEffectsAudioURL, shot.LipSyncVideoURL,
		shot.VoiceID, shot.AppliedSeqs, shot.PromptSnapshots,
		shot.CreatedAt, shot.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create shot", zap.Error(err),
			zap.String("shotID", shot.ID.String()), zap.String("sceneID", shot.SceneID.String()))
		return fmt.Errorf("failed to create shot: %w", err)
	}
	r.logger.Info("Shot created", zap.String("shotID", shot.ID.String()))
	return nil
}

// GetByID retrieves a shot by its unique ID.
func (r *pgShotRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Shot, error) {
	shot := &models.Shot{}
	err := pgxscan.Get(ctx, r.db, shot, getShotByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrShotNotFound
		}
		r.logger.Error("Failed to get shot", zap.Error(err), zap.String("shotID", id.String()))
		return nil, fmt.Errorf("failed to get shot %s: %w", id, err)
	}
	return shot, nil
}

// ListByScene returns the scene's shots in position order.
func (r *pgShotRepository) ListByScene(ctx context.Context, sceneID uuid.UUID) ([]models.Shot, error) {
	var shots []models.Shot
	if err := pgxscan.Select(ctx, r.db, &shots, listShotsBySceneQuery, sceneID); err != nil {
		r.logger.Error("Failed to list shots", zap.Error(err), zap.String("sceneID", sceneID.String()))
		return nil, fmt.Errorf("failed to list shots for scene %s: %w", sceneID, err)
	}
	return shots, nil
}

// CountByScene returns the number of shot child records for a scene.
func (r *pgShotRepository) CountByScene(ctx context.Context, sceneID uuid.UUID) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, countShotsBySceneQuery, sceneID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count shots for scene %s: %w", sceneID, err)
	}
	return count, nil
}

// Update writes the full shot row.
func (r *pgShotRepository) Update(ctx context.Context, shot *models.Shot) error {
	shot.UpdatedAt = time.Now().UTC()
	shot.RecomputeFlags()

	tag, err := r.db.Exec(ctx, updateShotQuery,
		shot.ID, shot.Position, shot.Type,
		shot.Description, shot.Prompt, shot.Dialogue, shot.Narration, shot.SoundEffects,
		shot.HasDialogue, shot.HasNarration, shot.HasSoundEffects,
		shot.LocationOverride, shot.LightingOverride, shot.WeatherOverride,
		shot.ImageURL, shot.VideoURL, shot.DialogueAudioURL, shot.SoundEffectsAudioURL, shot.LipSyncVideoURL,
		shot.VoiceID, shot.AppliedSeqs, shot.PromptSnapshots, shot.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update shot", zap.Error(err), zap.String("shotID", shot.ID.String()))
		return fmt.Errorf("failed to update shot %s: %w", shot.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrShotNotFound
	}
	return nil
}

// Delete removes a shot record.
func (r *pgShotRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deleteShotQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete shot", zap.Error(err), zap.String("shotID", id.String()))
		return fmt.Errorf("failed to delete shot %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrShotNotFound
	}
	r.logger.Info("Shot deleted", zap.String("shotID", id.String()))
	return nil
}
