package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyboard-server/internal/generation"
	"storyboard-server/internal/merge"
	"storyboard-server/internal/messaging"
	"storyboard-server/internal/models"
	"storyboard-server/internal/orchestrator"
	"storyboard-server/internal/repository"
	"storyboard-server/internal/storage"
)

// TaskOutcome is the end-to-end result of one media generation task.
type TaskOutcome struct {
	State         orchestrator.JobState
	AssetURL      string // Public URL of the stored asset, when applied
	Applied       bool   // False when the result was discarded as stale
	FailureReason string
}

// GenerationService owns the media generation workflows: enqueueing
// tasks from the API side and running them to completion on the worker
// side.
type GenerationService interface {
	// Enqueue validates preconditions for the requested media kind,
	// snapshots the prompt for prompt-driven kinds, and publishes a task
	// for the worker. Returns the task id.
	Enqueue(ctx context.Context, userID, shotID uuid.UUID, kind models.MediaKind) (string, error)
	// EnqueueSceneImages queues one image generation task per shot in
	// the scene. Shots that cannot support image generation are skipped
	// rather than failing the batch.
	EnqueueSceneImages(ctx context.Context, userID, sceneID uuid.UUID) ([]string, error)
	// ProcessTask runs one enqueued task end to end: submit, poll, fetch
	// the produced asset, re-host it in blob storage and merge the
	// reference into the shot.
	ProcessTask(ctx context.Context, payload messaging.MediaTaskPayload) (TaskOutcome, error)
}

type generationServiceImpl struct {
	logger         *zap.Logger
	storyRepo      repository.StoryRepository
	sceneRepo      repository.SceneRepository
	shotRepo       repository.ShotRepository
	orchestrator   *orchestrator.Orchestrator
	backends       map[models.MediaKind]generation.Backend
	blobStore      storage.BlobStore
	taskPublisher  messaging.TaskPublisher
	defaultVoiceID string
}

// NewGenerationService creates the generation service. taskPublisher may
// be nil on the worker side; orchestrator, backends and blobStore may be
// nil on the API side.
func NewGenerationService(
	logger *zap.Logger,
	storyRepo repository.StoryRepository,
	sceneRepo repository.SceneRepository,
	shotRepo repository.ShotRepository,
	orch *orchestrator.Orchestrator,
	backends map[models.MediaKind]generation.Backend,
	blobStore storage.BlobStore,
	taskPublisher messaging.TaskPublisher,
	defaultVoiceID string,
) GenerationService {
	return &generationServiceImpl{
		logger:         logger.Named("GenerationService"),
		storyRepo:      storyRepo,
		sceneRepo:      sceneRepo,
		shotRepo:       shotRepo,
		orchestrator:   orch,
		backends:       backends,
		blobStore:      blobStore,
		taskPublisher:  taskPublisher,
		defaultVoiceID: defaultVoiceID,
	}
}

func (g *generationServiceImpl) Enqueue(ctx context.Context, userID, shotID uuid.UUID, kind models.MediaKind) (string, error) {
	if !models.IsValidMediaKind(kind) {
		return "", fmt.Errorf("%w: unknown media kind %q", models.ErrInvalidInput, kind)
	}
	shot, scene, story, err := g.loadChain(ctx, shotID)
	if err != nil {
		return "", err
	}
	if story.UserID != userID {
		return "", fmt.Errorf("%w: shot %s does not belong to user %s", models.ErrScopeViolation, shotID, userID)
	}
	if err := checkGenerationPreconditions(shot, kind); err != nil {
		return "", err
	}
	return g.enqueueShot(ctx, userID, story.ID, scene.ID, shot, kind)
}

func (g *generationServiceImpl) EnqueueSceneImages(ctx context.Context, userID, sceneID uuid.UUID) ([]string, error) {
	scene, err := g.sceneRepo.GetByID(ctx, sceneID)
	if err != nil {
		return nil, err
	}
	story, err := g.storyRepo.GetByID(ctx, scene.StoryID)
	if err != nil {
		return nil, err
	}
	if story.UserID != userID {
		return nil, fmt.Errorf("%w: scene %s does not belong to user %s", models.ErrScopeViolation, sceneID, userID)
	}
	shots, err := g.shotRepo.ListByScene(ctx, sceneID)
	if err != nil {
		return nil, err
	}

	taskIDs := make([]string, 0, len(shots))
	for i := range shots {
		shot := &shots[i]
		if err := checkGenerationPreconditions(shot, models.MediaKindImage); err != nil {
			g.logger.Warn("Skipping shot in scene regeneration",
				zap.String("shot_id", shot.ID.String()), zap.Error(err))
			continue
		}
		taskID, err := g.enqueueShot(ctx, userID, story.ID, scene.ID, shot, models.MediaKindImage)
		if err != nil {
			return taskIDs, err
		}
		taskIDs = append(taskIDs, taskID)
	}
	return taskIDs, nil
}

// enqueueShot snapshots the prompt for prompt-driven kinds and publishes
// the task. Preconditions and ownership are the caller's responsibility.
func (g *generationServiceImpl) enqueueShot(ctx context.Context, userID, storyID, sceneID uuid.UUID, shot *models.Shot, kind models.MediaKind) (string, error) {
	// Prompt-driven kinds snapshot the prompt at enqueue time; a result
	// produced for an outdated prompt is later discarded at merge time.
	if kind == models.MediaKindImage || kind == models.MediaKindVideo {
		if shot.PromptSnapshots == nil {
			shot.PromptSnapshots = make(map[string]string, 1)
		}
		shot.PromptSnapshots[string(kind)] = shot.Prompt
		if err := g.shotRepo.Update(ctx, shot); err != nil {
			return "", err
		}
	}

	taskID := uuid.NewString()
	payload := messaging.MediaTaskPayload{
		TaskID:  taskID,
		UserID:  userID.String(),
		StoryID: storyID,
		SceneID: sceneID,
		ShotID:  shot.ID,
		Kind:    kind,
	}
	if err := g.taskPublisher.PublishMediaTask(ctx, payload); err != nil {
		g.logger.Error("Failed to publish media task",
			zap.String("task_id", taskID), zap.String("shot_id", shot.ID.String()), zap.Error(err))
		return "", err
	}

	g.logger.Info("Media generation task enqueued",
		zap.String("task_id", taskID),
		zap.String("shot_id", shot.ID.String()),
		zap.String("kind", string(kind)))
	return taskID, nil
}

func (g *generationServiceImpl) ProcessTask(ctx context.Context, payload messaging.MediaTaskPayload) (TaskOutcome, error) {
	shot, err := g.shotRepo.GetByID(ctx, payload.ShotID)
	if err != nil {
		return TaskOutcome{}, err
	}
	if err := checkGenerationPreconditions(shot, payload.Kind); err != nil {
		return TaskOutcome{}, err
	}

	// The snapshot persisted at enqueue time is the authority on
	// staleness: if the prompt was edited while the task sat in the
	// queue, running the job would only produce a discarded result.
	if snapshot, pending := shot.PromptSnapshots[string(payload.Kind)]; pending && snapshot != shot.Prompt {
		g.logger.Warn("Skipping task whose prompt was edited after enqueue",
			zap.String("task_id", payload.TaskID),
			zap.String("shot_id", payload.ShotID.String()),
			zap.String("kind", string(payload.Kind)))
		return TaskOutcome{
			State:         orchestrator.JobStateFailed,
			FailureReason: "prompt changed after the task was enqueued",
		}, nil
	}

	if payload.Kind == models.MediaKindLipSyncVideo {
		return g.processLipSync(ctx, payload, shot)
	}

	params, err := g.buildParams(shot, payload)
	if err != nil {
		return TaskOutcome{}, err
	}
	job, err := g.orchestrator.Submit(ctx, payload.TaskID, shot, payload.Kind, params)
	if err != nil {
		return TaskOutcome{}, err
	}
	result := g.orchestrator.AwaitCompletion(ctx, job)
	if result.State != orchestrator.JobStateCompleted {
		return TaskOutcome{State: result.State, FailureReason: result.FailureReason}, nil
	}
	return g.storeAndApply(ctx, payload, job, result)
}

// processLipSync runs the two-stage pipeline and folds both produced
// assets into the shot.
func (g *generationServiceImpl) processLipSync(ctx context.Context, payload messaging.MediaTaskPayload, shot *models.Shot) (TaskOutcome, error) {
	outcome, err := g.orchestrator.RunLipSyncPipeline(ctx, payload.TaskID, shot, g.voiceFor(shot))
	if err != nil {
		return TaskOutcome{}, err
	}
	if outcome.Audio.State != orchestrator.JobStateCompleted {
		return TaskOutcome{State: outcome.Audio.State, FailureReason: outcome.Audio.FailureReason}, nil
	}

	audioJob := &orchestrator.Job{
		TaskID: payload.TaskID,
		ShotID: payload.ShotID,
		Kind:   models.MediaKindDialogueAudio,
		Seq:    outcome.AudioSeq,
	}
	audioApplied, err := g.storeAndApply(ctx, payload, audioJob, outcome.Audio)
	if err != nil {
		return TaskOutcome{}, err
	}
	if outcome.LipSync.State != orchestrator.JobStateCompleted {
		return TaskOutcome{State: outcome.LipSync.State, FailureReason: outcome.LipSync.FailureReason}, nil
	}

	lipSyncJob := &orchestrator.Job{
		TaskID: payload.TaskID,
		ShotID: payload.ShotID,
		Kind:   models.MediaKindLipSyncVideo,
		Seq:    outcome.LipSyncSeq,
	}
	final, err := g.storeAndApply(ctx, payload, lipSyncJob, outcome.LipSync)
	if err != nil {
		return TaskOutcome{}, err
	}
	final.Applied = final.Applied && audioApplied.Applied
	return final, nil
}

// storeAndApply downloads the backend's asset, re-hosts it in blob
// storage and merges the public URL into the shot, subject to the merge
// engine's staleness guards.
func (g *generationServiceImpl) storeAndApply(ctx context.Context, payload messaging.MediaTaskPayload, job *orchestrator.Job, result orchestrator.Result) (TaskOutcome, error) {
	backend, ok := g.backends[job.Kind]
	if !ok {
		return TaskOutcome{}, fmt.Errorf("%w: no backend configured for media kind %q", models.ErrInvalidInput, job.Kind)
	}
	data, err := backend.FetchAsset(ctx, result.AssetURL)
	if err != nil {
		return TaskOutcome{}, fmt.Errorf("%w: failed to fetch produced asset: %v", models.ErrBackend, err)
	}
	path := storage.AssetPath(payload.StoryID, payload.SceneID, payload.ShotID, job.Kind)
	publicURL, err := g.blobStore.Put(ctx, path, data)
	if err != nil {
		return TaskOutcome{}, err
	}

	// Re-read the shot: it may have been edited while the job polled.
	fresh, err := g.shotRepo.GetByID(ctx, payload.ShotID)
	if err != nil {
		return TaskOutcome{}, err
	}
	merged, applied := merge.ApplyAssetResult(*fresh, job.Kind, publicURL, job.Seq, job.PromptSnapshot)
	if !applied {
		g.logger.Warn("Discarding stale generation result",
			zap.String("task_id", job.TaskID),
			zap.String("shot_id", payload.ShotID.String()),
			zap.String("kind", string(job.Kind)),
			zap.Int64("seq", job.Seq))
		return TaskOutcome{State: orchestrator.JobStateCompleted, AssetURL: publicURL, Applied: false}, nil
	}
	if err := g.shotRepo.Update(ctx, &merged); err != nil {
		return TaskOutcome{}, err
	}
	return TaskOutcome{State: orchestrator.JobStateCompleted, AssetURL: publicURL, Applied: true}, nil
}

func (g *generationServiceImpl) buildParams(shot *models.Shot, payload messaging.MediaTaskPayload) (generation.Params, error) {
	switch payload.Kind {
	case models.MediaKindImage:
		return generation.Params{"prompt": shot.Prompt, "hints": generationHints(shot)}, nil
	case models.MediaKindVideo:
		params := generation.Params{"prompt": shot.Prompt, "hints": generationHints(shot)}
		if shot.ImageURL != nil {
			params["image_url"] = *shot.ImageURL
		}
		return params, nil
	case models.MediaKindDialogueAudio:
		return generation.Params{"text": shot.Dialogue, "voice": g.voiceFor(shot)}, nil
	case models.MediaKindSoundEffectsAudio:
		return generation.Params{"text": shot.SoundEffects}, nil
	default:
		return nil, fmt.Errorf("%w: unknown media kind %q", models.ErrInvalidInput, payload.Kind)
	}
}

// generationHints collects the per-shot scene overrides that steer
// visual generation.
func generationHints(shot *models.Shot) map[string]string {
	hints := make(map[string]string, 3)
	if shot.LocationOverride != nil {
		hints["location"] = *shot.LocationOverride
	}
	if shot.LightingOverride != nil {
		hints["lighting"] = *shot.LightingOverride
	}
	if shot.WeatherOverride != nil {
		hints["weather"] = *shot.WeatherOverride
	}
	return hints
}

func (g *generationServiceImpl) voiceFor(shot *models.Shot) string {
	if shot.VoiceID != nil && *shot.VoiceID != "" {
		return *shot.VoiceID
	}
	return g.defaultVoiceID
}

// checkGenerationPreconditions fails fast when the shot cannot support
// the requested media kind, instead of starting a job expected to fail
// remotely.
func checkGenerationPreconditions(shot *models.Shot, kind models.MediaKind) error {
	switch kind {
	case models.MediaKindImage, models.MediaKindVideo:
		if shot.Prompt == "" {
			return fmt.Errorf("%w: %s generation requires a prompt on the shot", models.ErrPrecondition, kind)
		}
	case models.MediaKindDialogueAudio:
		if shot.Dialogue == "" {
			return fmt.Errorf("%w: dialogue audio generation requires dialogue text on the shot", models.ErrPrecondition)
		}
	case models.MediaKindSoundEffectsAudio:
		if shot.SoundEffects == "" {
			return fmt.Errorf("%w: sound effects generation requires sound effect text on the shot", models.ErrPrecondition)
		}
	case models.MediaKindLipSyncVideo:
		if shot.VideoURL == nil || *shot.VideoURL == "" {
			return fmt.Errorf("%w: lip-sync requires a completed video asset on the shot", models.ErrPrecondition)
		}
		if shot.Dialogue == "" {
			return fmt.Errorf("%w: lip-sync requires dialogue text on the shot", models.ErrPrecondition)
		}
	}
	return nil
}

// loadChain walks shot → scene → story.
func (g *generationServiceImpl) loadChain(ctx context.Context, shotID uuid.UUID) (*models.Shot, *models.Scene, *models.Story, error) {
	shot, err := g.shotRepo.GetByID(ctx, shotID)
	if err != nil {
		return nil, nil, nil, err
	}
	scene, err := g.sceneRepo.GetByID(ctx, shot.SceneID)
	if err != nil {
		return nil, nil, nil, err
	}
	story, err := g.storyRepo.GetByID(ctx, scene.StoryID)
	if err != nil {
		return nil, nil, nil, err
	}
	return shot, scene, story, nil
}
