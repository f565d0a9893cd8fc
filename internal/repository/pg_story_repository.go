package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"storyboard-server/internal/models"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewPgStoryRepository(db DBTX, logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("PgStoryRepo"),
	}
}

const createStoryQuery = `
INSERT INTO stories (id, user_id, title, description, embedded_scenes, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

const getStoryByIDQuery = `
SELECT id, user_id, title, description, embedded_scenes, created_at, updated_at
FROM stories
WHERE id = $1`

const updateStoryQuery = `
UPDATE stories
SET title = COALESCE($2, title),
    description = COALESCE($3, description),
    updated_at = $4
WHERE id = $1`

const deleteStoryQuery = `DELETE FROM stories WHERE id = $1`

const clearEmbeddedScenesQuery = `
UPDATE stories
SET embedded_scenes = NULL, updated_at = $2
WHERE id = $1 AND embedded_scenes IS NOT NULL`

const setEmbeddedScenesQuery = `
UPDATE stories
SET embedded_scenes = $2, updated_at = $3
WHERE id = $1`

// Create inserts a new story record.
func (r *pgStoryRepository) Create(ctx context.Context, story *models.Story) error {
	if story.ID == uuid.Nil {
		story.ID = models.NewID()
	}
	now := time.Now().UTC()
	if story.CreatedAt.IsZero() {
		story.CreatedAt = now
	}
	story.UpdatedAt = now

	_, err := r.db.Exec(ctx, createStoryQuery,
		story.ID,
		story.UserID,
		story.Title,
		story.Description,
		story.EmbeddedScenes,
		story.CreatedAt,
		story.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story", zap.Error(err), zap.String("storyID", story.ID.String()))
		return fmt.Errorf("failed to create story: %w", err)
	}
	r.logger.Info("Story created", zap.String("storyID", story.ID.String()))
	return nil
}

// GetByID retrieves a story record by its unique ID.
func (r *pgStoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	story := &models.Story{}
	err := r.db.QueryRow(ctx, getStoryByIDQuery, id).Scan(
		&story.ID,
		&story.UserID,
		&story.Title,
		&story.Description,
		&story.EmbeddedScenes,
		&story.CreatedAt,
		&story.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("Story not found", zap.String("storyID", id.String()))
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Failed to get story", zap.Error(err), zap.String("storyID", id.String()))
		return nil, fmt.Errorf("failed to get story %s: %w", id, err)
	}
	return story, nil
}

// Update applies a partial patch; nil fields are left untouched.
func (r *pgStoryRepository) Update(ctx context.Context, id uuid.UUID, patch models.StoryPatch) error {
	tag, err := r.db.Exec(ctx, updateStoryQuery, id, patch.Title, patch.Description, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to update story", zap.Error(err), zap.String("storyID", id.String()))
		return fmt.Errorf("failed to update story %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	return nil
}

// Delete removes a story record. Child scenes and shots cascade in the
// database.
func (r *pgStoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, deleteStoryQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete story", zap.Error(err), zap.String("storyID", id.String()))
		return fmt.Errorf("failed to delete story %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	r.logger.Info("Story deleted", zap.String("storyID", id.String()))
	return nil
}

// ClearEmbeddedScenes NULLs the legacy embedded list. Idempotent: a
// second call affects zero rows and reports false.
func (r *pgStoryRepository) ClearEmbeddedScenes(ctx context.Context, id uuid.UUID) (bool, error) {
	// Distinguish "story missing" from "list already absent" first.
	if _, err := r.GetByID(ctx, id); err != nil {
		return false, err
	}
	tag, err := r.db.Exec(ctx, clearEmbeddedScenesQuery, id, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to clear embedded scenes", zap.Error(err), zap.String("storyID", id.String()))
		return false, fmt.Errorf("failed to clear embedded scenes for story %s: %w", id, err)
	}
	cleared := tag.RowsAffected() > 0
	if cleared {
		r.logger.Info("Embedded scene list removed", zap.String("storyID", id.String()))
	}
	return cleared, nil
}

// SetEmbeddedScenes writes the legacy inline list.
func (r *pgStoryRepository) SetEmbeddedScenes(ctx context.Context, id uuid.UUID, scenes json.RawMessage) error {
	tag, err := r.db.Exec(ctx, setEmbeddedScenesQuery, id, scenes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set embedded scenes for story %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrStoryNotFound
	}
	return nil
}
