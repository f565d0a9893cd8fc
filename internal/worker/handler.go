// Package worker consumes media generation tasks, drives them through
// the orchestrator and reports outcomes to the notification queue.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus/push"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"storyboard-server/internal/messaging"
	"storyboard-server/internal/models"
	"storyboard-server/internal/orchestrator"
	"storyboard-server/internal/service"
)

// Handler processes incoming media generation task deliveries.
type Handler struct {
	logger      *zap.Logger
	generation  service.GenerationService
	notifier    messaging.Notifier
	pusher      *push.Pusher
	pushEnabled bool
}

// NewHandler creates a delivery handler. The notifier is required: every
// task ends with exactly one success or error notification.
func NewHandler(logger *zap.Logger, generation service.GenerationService, notifier messaging.Notifier, pushGatewayURL string, pushEnabled bool) *Handler {
	if notifier == nil {
		logger.Fatal("Notifier cannot be nil for worker handler")
	}
	h := &Handler{
		logger:      logger.Named("WorkerHandler"),
		generation:  generation,
		notifier:    notifier,
		pushEnabled: pushEnabled,
	}
	if pushEnabled {
		h.pusher = newPusher(pushGatewayURL)
		logger.Info("Prometheus Pusher initialized", zap.String("url", pushGatewayURL))
	}
	return h
}

// HandleDelivery processes one task message. Returns true when the
// original message should be acked; false nacks it to the dead-letter
// queue. A task that ran to a terminal outcome is always acked, even a
// failed one, because redelivery would not change the backend's verdict.
func (h *Handler) HandleDelivery(ctx context.Context, msg amqp.Delivery) bool {
	defer h.pushMetrics()

	var payload messaging.MediaTaskPayload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		h.logger.Error("Failed to unmarshal task payload",
			zap.Error(err),
			zap.String("correlation_id", msg.CorrelationId),
			zap.ByteString("body", msg.Body))
		tasksProcessed.WithLabelValues("unknown", "error_unmarshal").Inc()
		return false
	}

	log := h.logger.With(
		zap.String("task_id", payload.TaskID),
		zap.String("shot_id", payload.ShotID.String()),
		zap.String("kind", string(payload.Kind)))
	log.Info("Received media generation task")

	start := time.Now()
	outcome, err := h.generation.ProcessTask(ctx, payload)
	taskDuration.WithLabelValues(string(payload.Kind)).Observe(time.Since(start).Seconds())

	notification := h.buildNotification(payload, outcome, err)
	status := metricStatus(outcome, err)
	tasksProcessed.WithLabelValues(string(payload.Kind), status).Inc()

	if err != nil {
		log.Error("Task processing failed", zap.Error(err))
	} else {
		log.Info("Task processed",
			zap.String("state", string(outcome.State)),
			zap.Bool("applied", outcome.Applied))
	}

	if pubErr := h.notifier.Notify(ctx, notification); pubErr != nil {
		log.Error("Failed to publish task notification", zap.Error(pubErr))
		publishResultErrors.Inc()
		tasksProcessed.WithLabelValues(string(payload.Kind), "error_publish").Inc()
		return false
	}
	return true
}

// buildNotification maps the task outcome onto the single terminal
// notification for the user.
func (h *Handler) buildNotification(payload messaging.MediaTaskPayload, outcome service.TaskOutcome, err error) messaging.NotificationPayload {
	notification := messaging.NotificationPayload{
		TaskID:  payload.TaskID,
		UserID:  payload.UserID,
		StoryID: payload.StoryID.String(),
		SceneID: payload.SceneID.String(),
		ShotID:  payload.ShotID.String(),
		Kind:    payload.Kind,
	}

	switch {
	case err != nil:
		notification.Status = messaging.NotificationStatusError
		notification.Message = fmt.Sprintf("%s generation failed", payload.Kind)
		notification.ErrorDetails = err.Error()
		if errors.Is(err, models.ErrJobAlreadyActive) {
			notification.Message = fmt.Sprintf("%s generation is already in progress", payload.Kind)
		}
	case outcome.State == orchestrator.JobStateTimedOut:
		notification.Status = messaging.NotificationStatusError
		notification.Message = fmt.Sprintf("%s generation timed out", payload.Kind)
	case outcome.State != orchestrator.JobStateCompleted:
		notification.Status = messaging.NotificationStatusError
		notification.Message = fmt.Sprintf("%s generation failed", payload.Kind)
		notification.ErrorDetails = outcome.FailureReason
	case !outcome.Applied:
		notification.Status = messaging.NotificationStatusError
		notification.Message = fmt.Sprintf("%s result discarded: the shot changed while the job ran", payload.Kind)
	default:
		notification.Status = messaging.NotificationStatusSuccess
		notification.Message = fmt.Sprintf("%s generation completed", payload.Kind)
		url := outcome.AssetURL
		notification.AssetURL = &url
	}
	return notification
}

func metricStatus(outcome service.TaskOutcome, err error) string {
	switch {
	case err != nil:
		return "error_generation"
	case outcome.State == orchestrator.JobStateTimedOut:
		return "timed_out"
	case outcome.State != orchestrator.JobStateCompleted:
		return "error_generation"
	case !outcome.Applied:
		return "discarded"
	default:
		return "success"
	}
}

func (h *Handler) pushMetrics() {
	if !h.pushEnabled || h.pusher == nil {
		return
	}
	if err := h.pusher.Push(); err != nil {
		h.logger.Error("Failed to push metrics to Pushgateway", zap.Error(err))
	}
}
