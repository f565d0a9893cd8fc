package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"storyboard-server/internal/models"
)

// DBTX abstracts a pgx pool, connection or transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// StoryRepository owns persistence of story records, including the
// legacy embedded scene list.
type StoryRepository interface {
	Create(ctx context.Context, story *models.Story) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error)
	Update(ctx context.Context, id uuid.UUID, patch models.StoryPatch) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ClearEmbeddedScenes NULLs the legacy inline list. Returns whether a
	// list was present; clearing an absent list is a no-op, not an error.
	ClearEmbeddedScenes(ctx context.Context, id uuid.UUID) (bool, error)
	// SetEmbeddedScenes writes the legacy inline list. Retained for
	// compatibility tooling and tests around migration.
	SetEmbeddedScenes(ctx context.Context, id uuid.UUID, scenes json.RawMessage) error
}

// SceneRepository owns persistence of scene child records.
type SceneRepository interface {
	Create(ctx context.Context, scene *models.Scene) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Scene, error)
	ListByStory(ctx context.Context, storyID uuid.UUID) ([]models.Scene, error)
	CountByStory(ctx context.Context, storyID uuid.UUID) (int, error)
	Update(ctx context.Context, scene *models.Scene) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ShotRepository owns persistence of shot child records.
type ShotRepository interface {
	Create(ctx context.Context, shot *models.Shot) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Shot, error)
	ListByScene(ctx context.Context, sceneID uuid.UUID) ([]models.Shot, error)
	CountByScene(ctx context.Context, sceneID uuid.UUID) (int, error)
	Update(ctx context.Context, shot *models.Shot) error
	Delete(ctx context.Context, id uuid.UUID) error
}
