// Package handler exposes the story and generation services over HTTP.
// Authentication is delegated to the gateway; the authenticated user id
// arrives in the X-User-ID header.
package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"storyboard-server/internal/models"
	"storyboard-server/internal/service"
)

const userIDHeader = "X-User-ID"

// StoryHandler handles HTTP requests for stories, scenes, shots and
// generation tasks.
type StoryHandler struct {
	stories    service.StoryService
	generation service.GenerationService
	logger     *zap.Logger
}

// NewStoryHandler creates the handler.
func NewStoryHandler(stories service.StoryService, generation service.GenerationService, logger *zap.Logger) *StoryHandler {
	return &StoryHandler{
		stories:    stories,
		generation: generation,
		logger:     logger.Named("StoryHandler"),
	}
}

// RegisterRoutes mounts all routes on the echo instance.
func (h *StoryHandler) RegisterRoutes(e *echo.Echo) {
	api := e.Group("/api")

	stories := api.Group("/stories")
	{
		stories.POST("/parse", h.parseScript)
		stories.POST("", h.createStory)
		stories.GET("/:id", h.getStory)
		stories.PATCH("/:id", h.updateStory)
		stories.DELETE("/:id", h.deleteStory)
		stories.POST("/:id/scenes", h.createScene)
		stories.GET("/:id/structure", h.analyzeStructure)
		stories.POST("/:id/ensure-scene", h.ensureScene)
		stories.POST("/:id/migrate", h.migrateEmbeddedScenes)
		stories.DELETE("/:id/embedded-scenes", h.removeEmbeddedScenes)
	}

	scenes := api.Group("/scenes")
	{
		scenes.GET("/:id", h.getScene)
		scenes.PATCH("/:id", h.updateScene)
		scenes.DELETE("/:id", h.deleteScene)
		scenes.POST("/:id/shots", h.createShot)
		scenes.POST("/:id/regenerate", h.regenerateScene)
	}

	shots := api.Group("/shots")
	{
		shots.GET("/:id", h.getShot)
		shots.PATCH("/:id", h.updateShot)
		shots.DELETE("/:id", h.deleteShot)
		shots.POST("/:id/generate", h.generate)
	}
}

func (h *StoryHandler) parseScript(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}
	var req parseScriptRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, APIError{Message: "invalid request body"})
	}
	// The parser is total: any text, including empty, yields a story.
	story, err := h.stories.ParseScript(c.Request().Context(), userID, req.Text)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, story)
}

func (h *StoryHandler) createStory(c echo.Context) error {
	userID, err := userIDFrom(c)
	if err != nil {
		return err
	}
	var req createStoryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	story, err := h.stories.CreateStory(c.Request().Context(), userID, req.Title, req.Description)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, story)
}

func (h *StoryHandler) getStory(c echo.Context) error {
	userID, id, err := scopedID(c)
	if err != nil {
		return err
	}
	story, err := h.stories.GetStory(c.Request().Context(), userID, id)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, story)
}

func (h *StoryHandler) updateStory(c echo.Context) error {
	userID, id, err := scopedID(c)
	if err != nil {
		return err
	}
	var patch models.StoryPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, APIError{Message: "invalid request body"})
	}
	story, err := h.stories.UpdateStory(c.Request().Context(), userID, id, patch)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, story)
}

func (h *StoryHandler) deleteStory(c echo.Context) error {
	userID, id, err := scopedID(c)
	if err != nil {
		return err
	}
	if err := h.stories.DeleteStory(c.Request().Context(), userID, id); err != nil {
		return h.serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *StoryHandler) createScene(c echo.Context) error {
	userID, storyID, err := scopedID(c)
	if err != nil {
		return err
	}
	var req createSceneRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	scene, err := h.stories.CreateScene(c.Request().Context(), userID, storyID, req.toModel())
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, scene)
}

func (h *StoryHandler) getScene(c echo.Context) error {
	userID, id, err := scopedID(c)
	if err != nil {
		return err
	}
	scene, err := h.stories.GetScene(c.Request().Context(), userID, id)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, scene)
}

func (h *StoryHandler) updateScene(c echo.Context) error {
	userID, id, err := scopedID(c)
	if err != nil {
		return err
	}
	var patch models.ScenePatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, APIError{Message: "invalid request body"})
	}
	scene, err := h.stories.UpdateScene(c.Request().Context(), userID, id, patch)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, scene)
}

func (h *StoryHandler) deleteScene(c echo.Context) error {
	userID, id, err := scopedID(c)
	if err != nil {
		return err
	}
	if err := h.stories.DeleteScene(c.Request().Context(), userID, id); err != nil {
		return h.serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *StoryHandler) createShot(c echo.Context) error {
	userID, sceneID, err := scopedID(c)
	if err != nil {
		return err
	}
	var req createShotRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	shot, err := h.stories.CreateShot(c.Request().Context(), userID, sceneID, req.toModel())
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusCreated, shot)
}

func (h *StoryHandler) getShot(c echo.Context) error {
	userID, id, err := scopedID(c)
	if err != nil {
		return err
	}
	shot, err := h.stories.GetShot(c.Request().Context(), userID, id)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, shot)
}

func (h *StoryHandler) updateShot(c echo.Context) error {
	userID, id, err := scopedID(c)
	if err != nil {
		return err
	}
	var patch models.ShotPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, APIError{Message: "invalid request body"})
	}
	shot, err := h.stories.UpdateShot(c.Request().Context(), userID, id, patch)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, shot)
}

func (h *StoryHandler) deleteShot(c echo.Context) error {
	userID, id, err := scopedID(c)
	if err != nil {
		return err
	}
	if err := h.stories.DeleteShot(c.Request().Context(), userID, id); err != nil {
		return h.serviceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *StoryHandler) generate(c echo.Context) error {
	userID, shotID, err := scopedID(c)
	if err != nil {
		return err
	}
	var req generateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	taskID, err := h.generation.Enqueue(c.Request().Context(), userID, shotID, req.Kind)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusAccepted, generateResponse{TaskID: taskID})
}

// regenerateScene queues one image task per shot in the scene. Shots
// without a prompt are skipped, not failed.
func (h *StoryHandler) regenerateScene(c echo.Context) error {
	userID, sceneID, err := scopedID(c)
	if err != nil {
		return err
	}
	taskIDs, err := h.generation.EnqueueSceneImages(c.Request().Context(), userID, sceneID)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusAccepted, regenerateResponse{TaskIDs: taskIDs})
}

func (h *StoryHandler) analyzeStructure(c echo.Context) error {
	userID, id, err := scopedID(c)
	if err != nil {
		return err
	}
	report, err := h.stories.AnalyzeStructure(c.Request().Context(), userID, id)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

func (h *StoryHandler) ensureScene(c echo.Context) error {
	userID, id, err := scopedID(c)
	if err != nil {
		return err
	}
	story, created, err := h.stories.EnsureStoryHasScene(c.Request().Context(), userID, id)
	if err != nil {
		return h.serviceError(c, err)
	}
	message := "story already has scenes"
	if created {
		message = "default scene created"
	}
	return c.JSON(http.StatusOK, map[string]any{
		"changed": created,
		"message": message,
		"story":   story,
	})
}

func (h *StoryHandler) migrateEmbeddedScenes(c echo.Context) error {
	userID, id, err := scopedID(c)
	if err != nil {
		return err
	}
	story, err := h.stories.MigrateEmbeddedScenes(c.Request().Context(), userID, id)
	if err != nil {
		return h.serviceError(c, err)
	}
	return c.JSON(http.StatusOK, story)
}

func (h *StoryHandler) removeEmbeddedScenes(c echo.Context) error {
	userID, id, err := scopedID(c)
	if err != nil {
		return err
	}
	removed, err := h.stories.RemoveEmbeddedSceneList(c.Request().Context(), userID, id)
	if err != nil {
		return h.serviceError(c, err)
	}
	message := "no embedded list present"
	if removed {
		message = "embedded list removed"
	}
	return c.JSON(http.StatusOK, reconcileResponse{Changed: removed, Message: message})
}

// serviceError maps sentinel errors onto HTTP statuses.
func (h *StoryHandler) serviceError(c echo.Context, err error) error {
	var status int
	switch {
	case errors.Is(err, models.ErrNotFound),
		errors.Is(err, models.ErrStoryNotFound),
		errors.Is(err, models.ErrSceneNotFound),
		errors.Is(err, models.ErrShotNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrInvalidInput):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrScopeViolation):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrJobAlreadyActive):
		status = http.StatusConflict
	case errors.Is(err, models.ErrPrecondition):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrBackend):
		status = http.StatusBadGateway
	default:
		h.logger.Error("Unhandled service error", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, APIError{Message: "internal server error"})
	}
	return c.JSON(status, APIError{Message: err.Error()})
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, APIError{Message: "invalid request body"})
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, APIError{Message: fmt.Sprintf("validation failed: %v", err)})
	}
	return nil
}

func userIDFrom(c echo.Context) (uuid.UUID, error) {
	raw := c.Request().Header.Get(userIDHeader)
	if raw == "" {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, APIError{Message: "missing user id"})
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, APIError{Message: "invalid user id"})
	}
	return id, nil
}

func scopedID(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	userID, err := userIDFrom(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, APIError{Message: "invalid id format"})
	}
	return userID, id, nil
}
