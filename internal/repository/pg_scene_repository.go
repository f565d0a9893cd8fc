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

var _ SceneRepository = (*pgSceneRepository)(nil)

type pgSceneRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPgSceneRepository(db DBTX, logger *zap.Logger) SceneRepository {
	return &pgSceneRepository{
		db:     db,
		logger: logger.Named("PgSceneRepo"),
	}
}

const createSceneQuery = `
INSERT INTO scenes (id, story_id, position, title, location, description, lighting, weather, style, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

const getSceneByIDQuery = `
SELECT id, story_id, position, title, location, description, lighting, weather, style, created_at, updated_at
FROM scenes
WHERE id = $1`

const listScenesByStoryQuery = `
SELECT id, story_id, position, title, location, description, lighting, weather, style, created_at, updated_at
FROM scenes
WHERE story_id = $1
ORDER BY position ASC, created_at ASC`

const countScenesByStoryQuery = `SELECT COUNT(*) FROM scenes WHERE story_id = $1`

const updateSceneQuery = `
UPDATE scenes
SET position = $2, title = $3, location = $4, description = $5,
    lighting = $6, weather = $7, style = $8, updated_at = $9
WHERE id = $1`

const deleteSceneQuery = `DELETE FROM scenes WHERE id = $1`

// Create inserts a new scene child record.
func (r *pgSceneRepository) Create(ctx context.Context, scene *models.Scene) error {
	if scene.ID == uuid.Nil {
		scene.ID = models.NewID()
	}
	now := time.Now().UTC()
	if scene.CreatedAt.IsZero() {
		scene.CreatedAt = now
	}
	scene.UpdatedAt = now

	_, err := r.db.Exec(ctx, createSceneQuery,
		scene.ID,
		scene.StoryID,
		scene.Position,
		scene.Title,
		scene.Location,
		scene.Description,
		scene.Lighting,
		scene.Weather,
		scene.Style,
		scene.CreatedAt,
		scene.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create scene", zap.Error(err),
			zap.String("sceneID", scene.ID.String()), zap.String("storyID", scene.StoryID.String()))
		return fmt.Errorf("failed to create scene: %w", err)
	}
	r.logger.Info("Scene created", zap.String("sceneID", scene.ID.String()))
	return nil
}

// GetByID retrieves a scene by its unique ID.
func (r *pgSceneRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Scene, error) {
	scene := &models.Scene{}
	err := pgxscan.Get(ctx, r.db, scene, getSceneByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrSceneNotFound
		}
		r.logger.Error("Failed to get scene", zap.Error(err), zap.String("sceneID", id.String()))
		return nil, fmt.Errorf("failed to get scene %s: %w", id, err)
	}
	return scene, nil
}

// ListByStory returns the story's scenes in position order.
func (r *pgSceneRepository) ListByStory(ctx context.Context, storyID uuid.UUID) ([]models.Scene, error) {
	var scenes []models.Scene
	if err := pgxscan.Select(ctx, r.db, &scenes, listScenesByStoryQuery, storyID); err != nil {
		r.logger.Error("Failed to list scenes", zap.Error(err), zap.String("storyID", storyID.String()))
		return nil, fmt.Errorf("failed to list scenes for story %s: %w", storyID, err)
	}
	return scenes, nil
}

// CountByStory returns the number of scene child records for a story.
func (r *pgSceneRepository) CountByStory(ctx context.Context, storyID uuid.UUID) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, countScenesByStoryQuery, storyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count scenes for story %s: %w", storyID, err)
	}
	return count, nil
}

// Update writes the full scene row.
func (r *pgSceneRepository) Update(ctx context.Context, scene *models.Scene) error {
	scene.UpdatedAt = time.Now().UTC()
	tag, err := r.db.Exec(ctx, updateSceneQuery,
		scene.ID,
		scene.Position,
		scene.Title,
		scene.Location,
		scene.Description,
		scene.Lighting,
		scene.Weather,
		scene.Style,
		scene.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update scene", zap.Error(err), zap.String("sceneID", scene.ID.String()))
		return fmt.Errorf("failed to update scene %s: %w", scene.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSceneNotFound
	}
	return nil
}

// Delete removes a scene record. Child shots cascade in the database.
func (r *pgSceneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deleteSceneQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete scene", zap.Error(err), zap.String("sceneID", id.String()))
		return fmt.Errorf("failed to delete scene %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrSceneNotFound
	}
	r.logger.Info("Scene deleted", zap.String("sceneID", id.String()))
	return nil
}
