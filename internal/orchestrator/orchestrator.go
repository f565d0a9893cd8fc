// Package orchestrator drives long-running media generation jobs to
// completion: submit to a backend, poll on an interval with a bounded
// retry budget and a wall-clock deadline, and report exactly one
// terminal result per job.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storyboard-server/internal/generation"
	"storyboard-server/internal/models"
)

// JobState tracks a job through its lifecycle.
type JobState string

const (
	JobStateSubmitted JobState = "submitted"
	JobStatePolling   JobState = "polling"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
	JobStateTimedOut  JobState = "timed_out"
)

// Result is the single terminal outcome of one job.
type Result struct {
	State         JobState // JobStateCompleted, JobStateFailed or JobStateTimedOut
	AssetURL      string   // Set when State == JobStateCompleted
	FailureReason string   // Set when State == JobStateFailed
}

// Job is a handle on one submitted generation job.
type Job struct {
	TaskID         string
	ShotID         uuid.UUID
	Kind           models.MediaKind
	BackendJobID   string
	Seq            int64
	PromptSnapshot string
	State          JobState
}

// ProgressReporter receives human-readable progress updates while a job
// polls. Implementations are fire-and-forget.
type ProgressReporter interface {
	Progress(ctx context.Context, job *Job, message string)
}

// Config bounds the poll loops. Deadlines are per media kind because
// backend latencies differ by an order of magnitude between kinds.
type Config struct {
	PollInterval     time.Duration
	CheckTimeout     time.Duration
	MaxCheckFailures int
	Deadlines        map[models.MediaKind]time.Duration
}

// Orchestrator coordinates generation jobs across backends. One
// cooperative poll loop per active job; no shared locks.
type Orchestrator struct {
	logger   *zap.Logger
	backends map[models.MediaKind]generation.Backend
	registry Registry
	reporter ProgressReporter
	cfg      Config
}

// New creates an orchestrator. reporter may be nil.
func New(logger *zap.Logger, backends map[models.MediaKind]generation.Backend, registry Registry, reporter ProgressReporter, cfg Config) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 3 * time.Second
	}
	if cfg.CheckTimeout <= 0 {
		cfg.CheckTimeout = cfg.PollInterval
	}
	if cfg.MaxCheckFailures <= 0 {
		cfg.MaxCheckFailures = 5
	}
	return &Orchestrator{
		logger:   logger.Named("Orchestrator"),
		backends: backends,
		registry: registry,
		reporter: reporter,
		cfg:      cfg,
	}
}

// Submit starts one generation job for a shot and media kind.
//
// The shot+kind pair is claimed in the registry first; a second submit
// while a prior job for the exact pair is still polling returns
// models.ErrJobAlreadyActive so callers can treat it as a no-op instead
// of racing two polls against the same merge target. The job carries a
// monotonic submission sequence and, for prompt-driven kinds, a
// snapshot of the prompt it was submitted with.
func (o *Orchestrator) Submit(ctx context.Context, taskID string, shot *models.Shot, kind models.MediaKind, params generation.Params) (*Job, error) {
	backend, ok := o.backends[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no backend configured for media kind %q", models.ErrInvalidInput, kind)
	}

	claimed, err := o.registry.Claim(ctx, shot.ID, kind)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, models.ErrJobAlreadyActive
	}

	seq, err := o.registry.NextSeq(ctx, shot.ID, kind)
	if err != nil {
		o.releaseQuietly(shot.ID, kind)
		return nil, err
	}

	job := &Job{
		TaskID: taskID,
		ShotID: shot.ID,
		Kind:   kind,
		Seq:    seq,
		State:  JobStateSubmitted,
	}
	if kind == models.MediaKindImage || kind == models.MediaKindVideo {
		job.PromptSnapshot = shot.Prompt
	}

	jobID, err := backend.SubmitJob(ctx, params)
	if err != nil {
		o.releaseQuietly(shot.ID, kind)
		return nil, err
	}
	if jobID == "" {
		// Backend acknowledged without a job id; nothing to poll.
		o.releaseQuietly(shot.ID, kind)
		return nil, fmt.Errorf("%w: backend returned no job id", models.ErrBackend)
	}

	job.BackendJobID = jobID
	job.State = JobStatePolling
	o.logger.Info("Job submitted",
		zap.String("task_id", taskID),
		zap.String("shot_id", shot.ID.String()),
		zap.String("kind", string(kind)),
		zap.String("backend_job_id", jobID),
		zap.Int64("seq", seq))
	return job, nil
}

// AwaitCompletion polls the job until a terminal state, the per-kind
// deadline, or context cancellation. It always returns within the
// deadline plus one poll interval, always releases the registry claim,
// and never attempts remote cancellation.
func (o *Orchestrator) AwaitCompletion(ctx context.Context, job *Job) Result {
	defer o.releaseQuietly(job.ShotID, job.Kind)

	backend, ok := o.backends[job.Kind]
	if !ok {
		return o.terminal(job, Result{State: JobStateFailed, FailureReason: fmt.Sprintf("no backend configured for media kind %q", job.Kind)})
	}

	deadline := o.cfg.Deadlines[job.Kind]
	if deadline <= 0 {
		deadline = time.Minute
	}
	deadlineTimer := time.NewTimer(deadline)
	defer deadlineTimer.Stop()
	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0
	for {
		select {
		case <-ctx.Done():
			// Cancellation stops polling; the cancelled job applies no
			// patch, so a plain failure result is enough.
			return o.terminal(job, Result{State: JobStateFailed, FailureReason: fmt.Sprintf("polling cancelled: %v", ctx.Err())})

		case <-deadlineTimer.C:
			return o.terminal(job, Result{State: JobStateTimedOut})

		case <-ticker.C:
			status, err := o.checkStatus(ctx, backend, job)
			if err != nil {
				if ctx.Err() != nil {
					return o.terminal(job, Result{State: JobStateFailed, FailureReason: fmt.Sprintf("polling cancelled: %v", ctx.Err())})
				}
				consecutiveFailures++
				o.logger.Warn("Status check failed",
					zap.String("task_id", job.TaskID),
					zap.String("backend_job_id", job.BackendJobID),
					zap.Int("consecutive_failures", consecutiveFailures),
					zap.Error(err))
				if consecutiveFailures >= o.cfg.MaxCheckFailures {
					return o.terminal(job, Result{State: JobStateFailed, FailureReason: fmt.Sprintf("status check failed %d times in a row: %v", consecutiveFailures, err)})
				}
				continue
			}
			consecutiveFailures = 0

			o.reportProgress(ctx, job, status)

			switch status.State {
			case generation.JobStateCompleted:
				if status.AssetURL == "" {
					return o.terminal(job, Result{State: JobStateFailed, FailureReason: "backend reported completion without an asset URL"})
				}
				return o.terminal(job, Result{State: JobStateCompleted, AssetURL: status.AssetURL})
			case generation.JobStateFailed:
				reason := status.FailureReason
				if reason == "" {
					reason = "backend reported failure without a reason"
				}
				return o.terminal(job, Result{State: JobStateFailed, FailureReason: reason})
			}
		}
	}
}

// checkStatus performs one bounded status check.
func (o *Orchestrator) checkStatus(ctx context.Context, backend generation.Backend, job *Job) (generation.JobStatus, error) {
	checkCtx, cancel := context.WithTimeout(ctx, o.cfg.CheckTimeout)
	defer cancel()
	return backend.GetStatus(checkCtx, job.BackendJobID)
}

func (o *Orchestrator) reportProgress(ctx context.Context, job *Job, status generation.JobStatus) {
	if o.reporter == nil {
		return
	}
	message := status.Progress
	if message == "" {
		message = fmt.Sprintf("%s generation %s", job.Kind, status.State)
	}
	o.reporter.Progress(ctx, job, message)
}

func (o *Orchestrator) terminal(job *Job, result Result) Result {
	job.State = result.State
	o.logger.Info("Job reached terminal state",
		zap.String("task_id", job.TaskID),
		zap.String("shot_id", job.ShotID.String()),
		zap.String("kind", string(job.Kind)),
		zap.String("state", string(result.State)),
		zap.String("failure_reason", result.FailureReason))
	return result
}

// releaseQuietly frees the registry claim outside the caller's context,
// so a cancelled job still releases its slot.
func (o *Orchestrator) releaseQuietly(shotID uuid.UUID, kind models.MediaKind) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := o.registry.Release(ctx, shotID, kind); err != nil {
		o.logger.Warn("Failed to release job claim",
			zap.String("shot_id", shotID.String()), zap.String("kind", string(kind)), zap.Error(err))
	}
}
