package handler

import (
	"github.com/go-playground/validator/v10"

	"storyboard-server/internal/models"
)

// CustomValidator plugs go-playground/validator into echo's c.Validate.
type CustomValidator struct {
	validator *validator.Validate
}

// NewCustomValidator creates the request validator.
func NewCustomValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator.
func (v *CustomValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

// APIError is the standardized error response body.
type APIError struct {
	Message string `json:"message"`
}

type parseScriptRequest struct {
	Text string `json:"text"`
}

type createStoryRequest struct {
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
}

type createSceneRequest struct {
	Title       string `json:"title" validate:"required"`
	Location    string `json:"location" validate:"required"`
	Description string `json:"description" validate:"required"`
	Lighting    string `json:"lighting" validate:"required"`
	Weather     string `json:"weather" validate:"required"`
	Style       string `json:"style" validate:"required"`
}

func (r createSceneRequest) toModel() models.Scene {
	return models.Scene{
		Title:       r.Title,
		Location:    r.Location,
		Description: r.Description,
		Lighting:    r.Lighting,
		Weather:     r.Weather,
		Style:       r.Style,
	}
}

type createShotRequest struct {
	Type         models.ShotType `json:"type" validate:"required"`
	Description  string          `json:"description" validate:"required"`
	Prompt       string          `json:"prompt"`
	Dialogue     string          `json:"dialogue"`
	Narration    string          `json:"narration"`
	SoundEffects string          `json:"soundEffects"`
	VoiceID      *string         `json:"voiceId"`
}

func (r createShotRequest) toModel() models.Shot {
	return models.Shot{
		Type:         r.Type,
		Description:  r.Description,
		Prompt:       r.Prompt,
		Dialogue:     r.Dialogue,
		Narration:    r.Narration,
		SoundEffects: r.SoundEffects,
		VoiceID:      r.VoiceID,
	}
}

type generateRequest struct {
	Kind models.MediaKind `json:"kind" validate:"required"`
}

type generateResponse struct {
	TaskID string `json:"taskId"`
}

type regenerateResponse struct {
	TaskIDs []string `json:"taskIds"`
}

type reconcileResponse struct {
	Changed bool   `json:"changed"`
	Message string `json:"message"`
}
