package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyboard-server/internal/models"
	"storyboard-server/internal/scriptparser"
)

// EnsureStoryHasScene creates a default scene with one establishing shot
// when the story has no child scenes at all. The boolean reports whether
// anything was created; a story that already has scenes is untouched, so
// repeated calls converge on the first call's end state.
func (s *storyServiceImpl) EnsureStoryHasScene(ctx context.Context, userID, storyID uuid.UUID) (*models.Story, bool, error) {
	if _, err := s.ownedStory(ctx, userID, storyID); err != nil {
		return nil, false, err
	}

	count, err := s.sceneRepo.CountByStory(ctx, storyID)
	if err != nil {
		return nil, false, err
	}
	if count > 0 {
		if err := s.repairEmptyScenes(ctx, storyID); err != nil {
			return nil, false, err
		}
		story, err := s.GetStory(ctx, userID, storyID)
		return story, false, err
	}

	scene := models.Scene{
		ID:       models.NewID(),
		StoryID:  storyID,
		Position: 1,
		Title:    scriptparser.DefaultSceneTitle,
	}
	if err := s.sceneRepo.Create(ctx, &scene); err != nil {
		return nil, false, err
	}
	shot := models.Shot{
		ID:       models.NewID(),
		SceneID:  scene.ID,
		Position: 1,
		Type:     models.ShotTypeEstablishing,
	}
	if err := s.shotRepo.Create(ctx, &shot); err != nil {
		return nil, false, err
	}

	s.logger.Info("Default scene created",
		zap.String("story_id", storyID.String()),
		zap.String("scene_id", scene.ID.String()))
	story, err := s.GetStory(ctx, userID, storyID)
	return story, true, err
}

// repairEmptyScenes backfills a default shot into any scene left without
// one. Each insert is independent, so an interrupted run is re-runnable.
func (s *storyServiceImpl) repairEmptyScenes(ctx context.Context, storyID uuid.UUID) error {
	scenes, err := s.sceneRepo.ListByStory(ctx, storyID)
	if err != nil {
		return err
	}
	for _, scene := range scenes {
		count, err := s.shotRepo.CountByScene(ctx, scene.ID)
		if err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		shot := models.Shot{
			ID:       models.NewID(),
			SceneID:  scene.ID,
			Position: 1,
			Type:     models.ShotTypeEstablishing,
		}
		if err := s.shotRepo.Create(ctx, &shot); err != nil {
			return err
		}
		s.logger.Info("Default shot created for empty scene",
			zap.String("scene_id", scene.ID.String()))
	}
	return nil
}

func (s *storyServiceImpl) RemoveEmbeddedSceneList(ctx context.Context, userID, storyID uuid.UUID) (bool, error) {
	if _, err := s.ownedStory(ctx, userID, storyID); err != nil {
		return false, err
	}
	removed, err := s.storyRepo.ClearEmbeddedScenes(ctx, storyID)
	if err != nil {
		return false, err
	}
	if removed {
		s.logger.Info("Embedded scene list removed", zap.String("story_id", storyID.String()))
	}
	return removed, nil
}

func (s *storyServiceImpl) AnalyzeStructure(ctx context.Context, userID, storyID uuid.UUID) (*models.StructureReport, error) {
	story, err := s.ownedStory(ctx, userID, storyID)
	if err != nil {
		return nil, err
	}

	report := &models.StructureReport{StoryID: storyID}

	var embedded []models.Scene
	if len(story.EmbeddedScenes) > 0 {
		if err := json.Unmarshal(story.EmbeddedScenes, &embedded); err != nil {
			report.Problems = append(report.Problems, fmt.Sprintf("embedded scene list is not decodable: %v", err))
		}
		report.EmbeddedSceneCount = len(embedded)
	}

	scenes, err := s.sceneRepo.ListByStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	report.ChildSceneCount = len(scenes)

	hasEmbedded := len(story.EmbeddedScenes) > 0
	hasChildren := len(scenes) > 0
	switch {
	case hasEmbedded && hasChildren:
		report.Shape = models.ShapeBoth
	case hasEmbedded:
		report.Shape = models.ShapeEmbedded
	case hasChildren:
		report.Shape = models.ShapeHierarchical
	default:
		report.Shape = models.ShapeEmpty
	}

	// Invariants are judged against the authoritative representation:
	// child records when any exist, otherwise the embedded list.
	report.InvariantsHold = true
	if hasChildren {
		for _, scene := range scenes {
			count, err := s.shotRepo.CountByScene(ctx, scene.ID)
			if err != nil {
				return nil, err
			}
			report.Scenes = append(report.Scenes, models.SceneShotCount{
				SceneID:   scene.ID,
				Title:     scene.Title,
				ShotCount: count,
			})
			if count == 0 {
				report.InvariantsHold = false
				report.Problems = append(report.Problems, fmt.Sprintf("scene %s has no shots", scene.ID))
			}
		}
	} else if hasEmbedded {
		for _, scene := range embedded {
			report.Scenes = append(report.Scenes, models.SceneShotCount{
				SceneID:   scene.ID,
				Title:     scene.Title,
				ShotCount: len(scene.Shots),
			})
			if len(scene.Shots) == 0 {
				report.InvariantsHold = false
				report.Problems = append(report.Problems, fmt.Sprintf("embedded scene %s has no shots", scene.ID))
			}
		}
	} else {
		report.InvariantsHold = false
		report.Problems = append(report.Problems, "story has no scenes in either representation")
	}

	return report, nil
}

// MigrateEmbeddedScenes copies the legacy inline list into child records
// and then drops the list. Already-migrated scenes are skipped by id, so
// a run interrupted between copy and removal can simply be repeated.
func (s *storyServiceImpl) MigrateEmbeddedScenes(ctx context.Context, userID, storyID uuid.UUID) (*models.Story, error) {
	story, err := s.ownedStory(ctx, userID, storyID)
	if err != nil {
		return nil, err
	}
	if len(story.EmbeddedScenes) == 0 {
		return s.GetStory(ctx, userID, storyID)
	}

	var embedded []models.Scene
	if err := json.Unmarshal(story.EmbeddedScenes, &embedded); err != nil {
		return nil, fmt.Errorf("%w: embedded scene list is not decodable: %v", models.ErrValidation, err)
	}

	existing, err := s.sceneRepo.ListByStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	present := make(map[uuid.UUID]bool, len(existing))
	for _, scene := range existing {
		present[scene.ID] = true
	}

	migrated := 0
	for i := range embedded {
		scene := embedded[i]
		if scene.ID == uuid.Nil {
			scene.ID = models.NewID()
		}
		if present[scene.ID] {
			continue
		}
		scene.StoryID = storyID
		if scene.Position == 0 {
			scene.Position = len(existing) + migrated + 1
		}
		shots := scene.Shots
		scene.Shots = nil
		if err := s.sceneRepo.Create(ctx, &scene); err != nil {
			return nil, err
		}
		for j := range shots {
			shot := shots[j]
			if shot.ID == uuid.Nil {
				shot.ID = models.NewID()
			}
			shot.SceneID = scene.ID
			if shot.Position == 0 {
				shot.Position = j + 1
			}
			shot.RecomputeFlags()
			if err := s.shotRepo.Create(ctx, &shot); err != nil {
				return nil, err
			}
		}
		migrated++
	}

	if _, err := s.storyRepo.ClearEmbeddedScenes(ctx, storyID); err != nil {
		return nil, err
	}
	s.logger.Info("Embedded scenes migrated to child records",
		zap.String("story_id", storyID.String()),
		zap.Int("migrated", migrated))
	return s.GetStory(ctx, userID, storyID)
}
