package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyboard-server/internal/merge"
	"storyboard-server/internal/models"
)

func (s *storyServiceImpl) CreateScene(ctx context.Context, userID, storyID uuid.UUID, scene models.Scene) (*models.Scene, error) {
	if _, err := s.ownedStory(ctx, userID, storyID); err != nil {
		return nil, err
	}
	if err := validateSceneFields(scene); err != nil {
		return nil, err
	}

	count, err := s.sceneRepo.CountByStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	scene.ID = models.NewID()
	scene.StoryID = storyID
	scene.Position = count + 1

	if err := s.sceneRepo.Create(ctx, &scene); err != nil {
		return nil, err
	}
	s.logger.Info("Scene created",
		zap.String("scene_id", scene.ID.String()),
		zap.String("story_id", storyID.String()),
		zap.Int("position", scene.Position))
	return &scene, nil
}

func (s *storyServiceImpl) GetScene(ctx context.Context, userID, sceneID uuid.UUID) (*models.Scene, error) {
	scene, _, err := s.ownedScene(ctx, userID, sceneID)
	if err != nil {
		return nil, err
	}
	shots, err := s.shotRepo.ListByScene(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	scene.Shots = shots
	return scene, nil
}

// UpdateScene applies a partial patch to scene metadata and additively
// merges any shot patches into the scene's shot list.
func (s *storyServiceImpl) UpdateScene(ctx context.Context, userID, sceneID uuid.UUID, patch models.ScenePatch) (*models.Scene, error) {
	scene, _, err := s.ownedScene(ctx, userID, sceneID)
	if err != nil {
		return nil, err
	}

	// Validate the whole patch before writing anything: a rejected patch
	// must leave no partial write behind.
	var existing []models.Shot
	var known map[uuid.UUID]bool
	if len(patch.ShotPatches) > 0 {
		existing, err = s.shotRepo.ListByScene(ctx, sceneID)
		if err != nil {
			return nil, err
		}
		// Every patched shot id must live inside this scene.
		known = make(map[uuid.UUID]bool, len(existing))
		for _, shot := range existing {
			known[shot.ID] = true
		}
		for _, p := range patch.ShotPatches {
			if p.ID != uuid.Nil && !known[p.ID] {
				if _, err := s.shotRepo.GetByID(ctx, p.ID); err == nil {
					return nil, fmt.Errorf("%w: shot %s does not belong to scene %s", models.ErrScopeViolation, p.ID, sceneID)
				}
			}
		}
	}

	applyScenePatch(scene, patch)
	if err := s.sceneRepo.Update(ctx, scene); err != nil {
		return nil, err
	}

	if len(patch.ShotPatches) > 0 {
		merged := merge.MergeShots(existing, patch.ShotPatches)
		for i := range merged {
			merged[i].SceneID = sceneID
			if known[merged[i].ID] {
				if err := s.shotRepo.Update(ctx, &merged[i]); err != nil {
					return nil, err
				}
			} else {
				if err := s.shotRepo.Create(ctx, &merged[i]); err != nil {
					return nil, err
				}
			}
		}
	}

	return s.GetScene(ctx, userID, sceneID)
}

func (s *storyServiceImpl) DeleteScene(ctx context.Context, userID, sceneID uuid.UUID) error {
	scene, story, err := s.ownedScene(ctx, userID, sceneID)
	if err != nil {
		return err
	}
	shots, err := s.shotRepo.ListByScene(ctx, sceneID)
	if err != nil {
		return err
	}
	for i := range shots {
		s.deleteShotAssets(ctx, story.ID, scene.ID, &shots[i])
	}
	return s.sceneRepo.Delete(ctx, sceneID)
}

func (s *storyServiceImpl) CreateShot(ctx context.Context, userID, sceneID uuid.UUID, shot models.Shot) (*models.Shot, error) {
	if _, _, err := s.ownedScene(ctx, userID, sceneID); err != nil {
		return nil, err
	}
	if !models.IsValidShotType(shot.Type) {
		return nil, fmt.Errorf("%w: unknown shot type %q", models.ErrValidation, shot.Type)
	}
	if strings.TrimSpace(shot.Description) == "" {
		return nil, fmt.Errorf("%w: shot description is required", models.ErrValidation)
	}

	count, err := s.shotRepo.CountByScene(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	shot.ID = models.NewID()
	shot.SceneID = sceneID
	shot.Position = count + 1
	if shot.Prompt == "" {
		shot.Prompt = shot.Description
	}
	shot.RecomputeFlags()

	if err := s.shotRepo.Create(ctx, &shot); err != nil {
		return nil, err
	}
	s.logger.Info("Shot created",
		zap.String("shot_id", shot.ID.String()),
		zap.String("scene_id", sceneID.String()),
		zap.Int("position", shot.Position))
	return &shot, nil
}

func (s *storyServiceImpl) GetShot(ctx context.Context, userID, shotID uuid.UUID) (*models.Shot, error) {
	shot, _, _, err := s.ownedShot(ctx, userID, shotID)
	if err != nil {
		return nil, err
	}
	return shot, nil
}

// UpdateShot runs the patch through the merge engine; the repository
// write recomputes the derived flags once more before hitting storage.
func (s *storyServiceImpl) UpdateShot(ctx context.Context, userID, shotID uuid.UUID, patch models.ShotPatch) (*models.Shot, error) {
	shot, _, _, err := s.ownedShot(ctx, userID, shotID)
	if err != nil {
		return nil, err
	}
	merged := merge.MergeShot(*shot, patch)
	if err := s.shotRepo.Update(ctx, &merged); err != nil {
		return nil, err
	}
	return &merged, nil
}

func (s *storyServiceImpl) DeleteShot(ctx context.Context, userID, shotID uuid.UUID) error {
	shot, scene, story, err := s.ownedShot(ctx, userID, shotID)
	if err != nil {
		return err
	}
	s.deleteShotAssets(ctx, story.ID, scene.ID, shot)
	return s.shotRepo.Delete(ctx, shotID)
}

func validateSceneFields(scene models.Scene) error {
	required := map[string]string{
		"title":       scene.Title,
		"location":    scene.Location,
		"description": scene.Description,
		"lighting":    scene.Lighting,
		"weather":     scene.Weather,
		"style":       scene.Style,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%w: scene %s is required", models.ErrValidation, field)
		}
	}
	return nil
}

func applyScenePatch(scene *models.Scene, patch models.ScenePatch) {
	if patch.Title != nil && *patch.Title != "" {
		scene.Title = *patch.Title
	}
	if patch.Location != nil && *patch.Location != "" {
		scene.Location = *patch.Location
	}
	if patch.Description != nil && *patch.Description != "" {
		scene.Description = *patch.Description
	}
	if patch.Lighting != nil && *patch.Lighting != "" {
		scene.Lighting = *patch.Lighting
	}
	if patch.Weather != nil && *patch.Weather != "" {
		scene.Weather = *patch.Weather
	}
	if patch.Style != nil && *patch.Style != "" {
		scene.Style = *patch.Style
	}
}
