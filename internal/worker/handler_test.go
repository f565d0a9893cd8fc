package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyboard-server/internal/messaging"
	"storyboard-server/internal/mocks"
	"storyboard-server/internal/models"
	"storyboard-server/internal/orchestrator"
	"storyboard-server/internal/service"
	"storyboard-server/internal/worker"
)

func taskDelivery(t *testing.T) (amqp.Delivery, messaging.MediaTaskPayload) {
	t.Helper()
	payload := messaging.MediaTaskPayload{
		TaskID:  "task-1",
		UserID:  "user-1",
		StoryID: models.NewID(),
		SceneID: models.NewID(),
		ShotID:  models.NewID(),
		Kind:    models.MediaKindImage,
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return amqp.Delivery{Body: body}, payload
}

func newHandler(t *testing.T) (*worker.Handler, *mocks.MockGenerationService, *mocks.MockNotifier) {
	t.Helper()
	generation := mocks.NewMockGenerationService(t)
	notifier := mocks.NewMockNotifier(t)
	return worker.NewHandler(zap.NewNop(), generation, notifier, "", false), generation, notifier
}

func TestHandleDelivery_SuccessNotifiesAndAcks(t *testing.T) {
	handler, generation, notifier := newHandler(t)
	msg, payload := taskDelivery(t)

	generation.On("ProcessTask", mock.Anything, payload).Return(service.TaskOutcome{
		State:    orchestrator.JobStateCompleted,
		AssetURL: "http://assets/out.jpg",
		Applied:  true,
	}, nil).Once()
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n messaging.NotificationPayload) bool {
		return n.Status == messaging.NotificationStatusSuccess &&
			n.TaskID == payload.TaskID &&
			n.AssetURL != nil && *n.AssetURL == "http://assets/out.jpg"
	})).Return(nil).Once()

	assert.True(t, handler.HandleDelivery(context.Background(), msg))
}

func TestHandleDelivery_ErrorStillAcksAfterNotification(t *testing.T) {
	handler, generation, notifier := newHandler(t)
	msg, _ := taskDelivery(t)

	generation.On("ProcessTask", mock.Anything, mock.Anything).Return(service.TaskOutcome{}, errors.New("backend unreachable")).Once()
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n messaging.NotificationPayload) bool {
		return n.Status == messaging.NotificationStatusError && n.ErrorDetails == "backend unreachable"
	})).Return(nil).Once()

	assert.True(t, handler.HandleDelivery(context.Background(), msg),
		"a terminal failure is acked; redelivery would not change the verdict")
}

func TestHandleDelivery_DuplicateJobGetsDedicatedMessage(t *testing.T) {
	handler, generation, notifier := newHandler(t)
	msg, _ := taskDelivery(t)

	generation.On("ProcessTask", mock.Anything, mock.Anything).Return(service.TaskOutcome{}, models.ErrJobAlreadyActive).Once()
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n messaging.NotificationPayload) bool {
		return n.Status == messaging.NotificationStatusError &&
			n.Message == "image generation is already in progress"
	})).Return(nil).Once()

	assert.True(t, handler.HandleDelivery(context.Background(), msg))
}

func TestHandleDelivery_DiscardedResultReportedAsError(t *testing.T) {
	handler, generation, notifier := newHandler(t)
	msg, _ := taskDelivery(t)

	generation.On("ProcessTask", mock.Anything, mock.Anything).Return(service.TaskOutcome{
		State:   orchestrator.JobStateCompleted,
		Applied: false,
	}, nil).Once()
	notifier.On("Notify", mock.Anything, mock.MatchedBy(func(n messaging.NotificationPayload) bool {
		return n.Status == messaging.NotificationStatusError && n.AssetURL == nil
	})).Return(nil).Once()

	assert.True(t, handler.HandleDelivery(context.Background(), msg))
}

func TestHandleDelivery_MalformedPayloadNacked(t *testing.T) {
	handler, generation, _ := newHandler(t)

	ok := handler.HandleDelivery(context.Background(), amqp.Delivery{Body: []byte("not json")})

	assert.False(t, ok, "undecodable messages go to the dead-letter queue")
	generation.AssertNotCalled(t, "ProcessTask", mock.Anything, mock.Anything)
}

func TestHandleDelivery_NotifyFailureNacks(t *testing.T) {
	handler, generation, notifier := newHandler(t)
	msg, _ := taskDelivery(t)

	generation.On("ProcessTask", mock.Anything, mock.Anything).Return(service.TaskOutcome{
		State: orchestrator.JobStateCompleted, AssetURL: "http://assets/out.jpg", Applied: true,
	}, nil).Once()
	notifier.On("Notify", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	assert.False(t, handler.HandleDelivery(context.Background(), msg),
		"the notification is part of the task contract")
}
