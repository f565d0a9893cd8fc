package messaging

import (
	"github.com/google/uuid"

	"storyboard-server/internal/models"
)

// MediaTaskPayload is the message enqueued for one media generation job.
// It carries identifiers only: the worker re-reads the shot when it
// picks the task up, and staleness is judged against the prompt
// snapshot persisted on the shot at enqueue time, so the decision
// survives worker restarts.
type MediaTaskPayload struct {
	TaskID  string           `json:"taskId"`
	UserID  string           `json:"userId"`
	StoryID uuid.UUID        `json:"storyId"`
	SceneID uuid.UUID        `json:"sceneId"`
	ShotID  uuid.UUID        `json:"shotId"`
	Kind    models.MediaKind `json:"kind"`
}

// NotificationStatus is the status carried by a user notification.
type NotificationStatus string

const (
	NotificationStatusSuccess  NotificationStatus = "success"
	NotificationStatusError    NotificationStatus = "error"
	NotificationStatusProgress NotificationStatus = "progress"
)

// NotificationPayload is the message published for user-visible updates:
// progress messages while a job polls, then exactly one success or error
// notification per job. Delivery is fire-and-forget; a collaborator
// service owns the UI side.
type NotificationPayload struct {
	TaskID       string             `json:"task_id"`
	UserID       string             `json:"user_id"`
	StoryID      string             `json:"story_id,omitempty"`
	SceneID      string             `json:"scene_id,omitempty"`
	ShotID       string             `json:"shot_id,omitempty"`
	Kind         models.MediaKind   `json:"kind,omitempty"`
	Status       NotificationStatus `json:"status"`
	Message      string             `json:"message,omitempty"`
	AssetURL     *string            `json:"asset_url,omitempty"`
	ErrorDetails string             `json:"error_details,omitempty"`
}
