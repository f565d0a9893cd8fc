// Package generation wraps the externally hosted media generation
// backends. Each media kind is served by an asynchronous HTTP job
// service: submit returns a job id, status is polled until terminal.
package generation

import (
	"context"
)

// JobState is the backend-reported state of a generation job.
type JobState string

const (
	JobStateQueued    JobState = "queued"
	JobStateRunning   JobState = "running"
	JobStateCompleted JobState = "completed"
	JobStateFailed    JobState = "failed"
)

// Terminal reports whether the state ends the job on the backend side.
func (s JobState) Terminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// Params carries kind-specific submission parameters (prompt, voice,
// source asset URLs, aspect ratio and so on).
type Params map[string]any

// JobStatus is one status-check result.
type JobStatus struct {
	State         JobState `json:"state"`
	Progress      string   `json:"progress,omitempty"`
	AssetURL      string   `json:"asset_url,omitempty"`
	FailureReason string   `json:"failure_reason,omitempty"`
}

// Backend is one media generation job service.
type Backend interface {
	// SubmitJob submits a generation request and returns the backend job
	// id. An empty job id without an error is treated as a failure by
	// the caller.
	SubmitJob(ctx context.Context, params Params) (string, error)
	// GetStatus checks the state of a previously submitted job.
	GetStatus(ctx context.Context, jobID string) (JobStatus, error)
	// FetchAsset downloads the bytes of a completed asset.
	FetchAsset(ctx context.Context, assetURL string) ([]byte, error)
}
