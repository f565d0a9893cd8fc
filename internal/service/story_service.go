// Package service implements the application core: script parsing into
// persisted stories, scoped CRUD over the story hierarchy, reconciliation
// of the two scene representations, and media generation workflows.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyboard-server/internal/models"
	"storyboard-server/internal/repository"
	"storyboard-server/internal/scriptparser"
	"storyboard-server/internal/storage"
)

// StoryService is the write/read surface over the story hierarchy.
// Every operation is scoped to the requesting user; referencing another
// user's records fails with models.ErrScopeViolation.
type StoryService interface {
	// ParseScript parses free-form screenplay text into a story and
	// persists it as hierarchical child records. Parsing never fails on
	// content; only persistence errors are returned.
	ParseScript(ctx context.Context, userID uuid.UUID, text string) (*models.Story, error)

	CreateStory(ctx context.Context, userID uuid.UUID, title, description string) (*models.Story, error)
	GetStory(ctx context.Context, userID, storyID uuid.UUID) (*models.Story, error)
	UpdateStory(ctx context.Context, userID, storyID uuid.UUID, patch models.StoryPatch) (*models.Story, error)
	DeleteStory(ctx context.Context, userID, storyID uuid.UUID) error

	CreateScene(ctx context.Context, userID, storyID uuid.UUID, scene models.Scene) (*models.Scene, error)
	GetScene(ctx context.Context, userID, sceneID uuid.UUID) (*models.Scene, error)
	UpdateScene(ctx context.Context, userID, sceneID uuid.UUID, patch models.ScenePatch) (*models.Scene, error)
	DeleteScene(ctx context.Context, userID, sceneID uuid.UUID) error

	CreateShot(ctx context.Context, userID, sceneID uuid.UUID, shot models.Shot) (*models.Shot, error)
	GetShot(ctx context.Context, userID, shotID uuid.UUID) (*models.Shot, error)
	UpdateShot(ctx context.Context, userID, shotID uuid.UUID, patch models.ShotPatch) (*models.Shot, error)
	DeleteShot(ctx context.Context, userID, shotID uuid.UUID) error

	// EnsureStoryHasScene repairs the structural invariant "at least one
	// scene, each with at least one shot" by creating a default pair only
	// when none exist. Safe to call repeatedly.
	EnsureStoryHasScene(ctx context.Context, userID, storyID uuid.UUID) (*models.Story, bool, error)
	// RemoveEmbeddedSceneList drops the legacy inline scene list.
	// Idempotent: returns whether a list was actually removed.
	RemoveEmbeddedSceneList(ctx context.Context, userID, storyID uuid.UUID) (bool, error)
	// AnalyzeStructure reports which representations are present and
	// whether the structural invariants hold. Read-only.
	AnalyzeStructure(ctx context.Context, userID, storyID uuid.UUID) (*models.StructureReport, error)
	// MigrateEmbeddedScenes copies the legacy inline list into child
	// records and then removes the list. Each step is individually
	// idempotent so an interrupted run can be re-run safely.
	MigrateEmbeddedScenes(ctx context.Context, userID, storyID uuid.UUID) (*models.Story, error)
}

type storyServiceImpl struct {
	logger    *zap.Logger
	storyRepo repository.StoryRepository
	sceneRepo repository.SceneRepository
	shotRepo  repository.ShotRepository
	blobStore storage.BlobStore
}

// NewStoryService creates the story service. blobStore may be nil; asset
// cleanup on delete is then skipped.
func NewStoryService(
	logger *zap.Logger,
	storyRepo repository.StoryRepository,
	sceneRepo repository.SceneRepository,
	shotRepo repository.ShotRepository,
	blobStore storage.BlobStore,
) StoryService {
	return &storyServiceImpl{
		logger:    logger.Named("StoryService"),
		storyRepo: storyRepo,
		sceneRepo: sceneRepo,
		shotRepo:  shotRepo,
		blobStore: blobStore,
	}
}

func (s *storyServiceImpl) ParseScript(ctx context.Context, userID uuid.UUID, text string) (*models.Story, error) {
	story := scriptparser.Parse(text)
	story.UserID = userID

	if err := s.storyRepo.Create(ctx, story); err != nil {
		s.logger.Error("Failed to persist parsed story", zap.String("user_id", userID.String()), zap.Error(err))
		return nil, err
	}
	for i := range story.Scenes {
		scene := &story.Scenes[i]
		scene.StoryID = story.ID
		if err := s.sceneRepo.Create(ctx, scene); err != nil {
			return nil, err
		}
		for j := range scene.Shots {
			shot := &scene.Shots[j]
			shot.SceneID = scene.ID
			if err := s.shotRepo.Create(ctx, shot); err != nil {
				return nil, err
			}
		}
	}

	s.logger.Info("Script parsed into story",
		zap.String("story_id", story.ID.String()),
		zap.String("user_id", userID.String()),
		zap.Int("scenes", len(story.Scenes)))
	return story, nil
}

func (s *storyServiceImpl) CreateStory(ctx context.Context, userID uuid.UUID, title, description string) (*models.Story, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: story title is required", models.ErrValidation)
	}
	story := &models.Story{
		ID:          models.NewID(),
		UserID:      userID,
		Title:       title,
		Description: description,
	}
	if err := s.storyRepo.Create(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

func (s *storyServiceImpl) GetStory(ctx context.Context, userID, storyID uuid.UUID) (*models.Story, error) {
	story, err := s.ownedStory(ctx, userID, storyID)
	if err != nil {
		return nil, err
	}
	if err := s.hydrate(ctx, story); err != nil {
		return nil, err
	}
	return story, nil
}

func (s *storyServiceImpl) UpdateStory(ctx context.Context, userID, storyID uuid.UUID, patch models.StoryPatch) (*models.Story, error) {
	if _, err := s.ownedStory(ctx, userID, storyID); err != nil {
		return nil, err
	}
	if err := s.storyRepo.Update(ctx, storyID, patch); err != nil {
		return nil, err
	}
	return s.GetStory(ctx, userID, storyID)
}

func (s *storyServiceImpl) DeleteStory(ctx context.Context, userID, storyID uuid.UUID) error {
	story, err := s.ownedStory(ctx, userID, storyID)
	if err != nil {
		return err
	}
	scenes, err := s.sceneRepo.ListByStory(ctx, storyID)
	if err != nil {
		return err
	}
	for i := range scenes {
		shots, err := s.shotRepo.ListByScene(ctx, scenes[i].ID)
		if err != nil {
			return err
		}
		for j := range shots {
			s.deleteShotAssets(ctx, story.ID, scenes[i].ID, &shots[j])
		}
	}
	// Child records go with the story via ON DELETE CASCADE.
	return s.storyRepo.Delete(ctx, storyID)
}

// hydrate loads the authoritative scene representation into the story:
// child records when any exist, otherwise the decoded embedded list.
func (s *storyServiceImpl) hydrate(ctx context.Context, story *models.Story) error {
	scenes, err := s.sceneRepo.ListByStory(ctx, story.ID)
	if err != nil {
		return err
	}
	if len(scenes) == 0 && len(story.EmbeddedScenes) > 0 {
		var embedded []models.Scene
		if err := json.Unmarshal(story.EmbeddedScenes, &embedded); err != nil {
			s.logger.Warn("Failed to decode embedded scene list",
				zap.String("story_id", story.ID.String()), zap.Error(err))
			return nil
		}
		story.Scenes = embedded
		return nil
	}
	for i := range scenes {
		shots, err := s.shotRepo.ListByScene(ctx, scenes[i].ID)
		if err != nil {
			return err
		}
		scenes[i].Shots = shots
	}
	story.Scenes = scenes
	return nil
}

// ownedStory loads a story and enforces ownership.
func (s *storyServiceImpl) ownedStory(ctx context.Context, userID, storyID uuid.UUID) (*models.Story, error) {
	story, err := s.storyRepo.GetByID(ctx, storyID)
	if err != nil {
		return nil, err
	}
	if story.UserID != userID {
		return nil, fmt.Errorf("%w: story %s does not belong to user %s", models.ErrScopeViolation, storyID, userID)
	}
	return story, nil
}

// ownedScene loads a scene and walks up to enforce story ownership.
func (s *storyServiceImpl) ownedScene(ctx context.Context, userID, sceneID uuid.UUID) (*models.Scene, *models.Story, error) {
	scene, err := s.sceneRepo.GetByID(ctx, sceneID)
	if err != nil {
		return nil, nil, err
	}
	story, err := s.ownedStory(ctx, userID, scene.StoryID)
	if err != nil {
		return nil, nil, err
	}
	return scene, story, nil
}

// ownedShot loads a shot and walks up to enforce story ownership.
func (s *storyServiceImpl) ownedShot(ctx context.Context, userID, shotID uuid.UUID) (*models.Shot, *models.Scene, *models.Story, error) {
	shot, err := s.shotRepo.GetByID(ctx, shotID)
	if err != nil {
		return nil, nil, nil, err
	}
	scene, story, err := s.ownedScene(ctx, userID, shot.SceneID)
	if err != nil {
		return nil, nil, nil, err
	}
	return shot, scene, story, nil
}

// deleteShotAssets best-effort removes every stored asset of a shot.
// Record deletion proceeds regardless of blob failures.
func (s *storyServiceImpl) deleteShotAssets(ctx context.Context, storyID, sceneID uuid.UUID, shot *models.Shot) {
	if s.blobStore == nil {
		return
	}
	for _, kind := range models.AllMediaKinds() {
		if shot.AssetURL(kind) == nil {
			continue
		}
		path := storage.AssetPath(storyID, sceneID, shot.ID, kind)
		if err := s.blobStore.Delete(ctx, path); err != nil {
			s.logger.Warn("Failed to delete shot asset",
				zap.String("shot_id", shot.ID.String()),
				zap.String("kind", string(kind)),
				zap.Error(err))
		}
	}
}
