package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"storyboard-server/internal/models"
)

// httpBackend talks to one generation job service over HTTP.
type httpBackend struct {
	logger  *zap.Logger
	client  *http.Client
	baseURL string
	kind    models.MediaKind
}

var _ Backend = (*httpBackend)(nil)

// NewHTTPBackend creates a backend client for one media kind.
func NewHTTPBackend(logger *zap.Logger, kind models.MediaKind, baseURL string, timeout time.Duration) Backend {
	return &httpBackend{
		logger:  logger.Named("Backend").With(zap.String("kind", string(kind))),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		kind:    kind,
	}
}

type submitRequest struct {
	Kind   models.MediaKind `json:"kind"`
	Params Params           `json:"params"`
}

type submitResponse struct {
	JobID string `json:"job_id"`
}

// SubmitJob posts the generation request and returns the backend job id.
func (b *httpBackend) SubmitJob(ctx context.Context, params Params) (string, error) {
	reqBody, err := json.Marshal(submitRequest{Kind: b.kind, Params: params})
	if err != nil {
		return "", fmt.Errorf("failed to marshal submit request: %w", err)
	}

	endpointURL := b.baseURL + "/jobs"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpointURL, bytes.NewReader(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create submit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		b.logger.Error("Submit request failed", zap.String("url", endpointURL), zap.Error(err))
		return "", fmt.Errorf("%w: submit request failed: %v", models.ErrBackend, err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		b.logger.Error("Submit returned non-OK status",
			zap.Int("status_code", resp.StatusCode), zap.ByteString("response_body", bodyBytes))
		return "", fmt.Errorf("%w: submit returned status %d: %s", models.ErrBackend, resp.StatusCode, string(bodyBytes))
	}
	if readErr != nil {
		return "", fmt.Errorf("%w: failed to read submit response: %v", models.ErrBackend, readErr)
	}

	var submitResp submitResponse
	if err := json.Unmarshal(bodyBytes, &submitResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode submit response: %v", models.ErrBackend, err)
	}
	b.logger.Debug("Job submitted", zap.String("job_id", submitResp.JobID))
	return submitResp.JobID, nil
}

// GetStatus checks one job's state.
func (b *httpBackend) GetStatus(ctx context.Context, jobID string) (JobStatus, error) {
	endpointURL := fmt.Sprintf("%s/jobs/%s", b.baseURL, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpointURL, nil)
	if err != nil {
		return JobStatus{}, fmt.Errorf("failed to create status request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return JobStatus{}, fmt.Errorf("%w: status request failed: %v", models.ErrBackend, err)
	}
	defer resp.Body.Close()

	bodyBytes, readErr := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return JobStatus{}, fmt.Errorf("%w: status returned status %d: %s", models.ErrBackend, resp.StatusCode, string(bodyBytes))
	}
	if readErr != nil {
		return JobStatus{}, fmt.Errorf("%w: failed to read status response: %v", models.ErrBackend, readErr)
	}

	var status JobStatus
	if err := json.Unmarshal(bodyBytes, &status); err != nil {
		return JobStatus{}, fmt.Errorf("%w: failed to decode status response: %v", models.ErrBackend, err)
	}
	return status, nil
}

// FetchAsset downloads a completed asset.
func (b *httpBackend) FetchAsset(ctx context.Context, assetURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, assetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: asset download failed: %v", models.ErrBackend, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: asset download returned status %d", models.ErrBackend, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read asset body: %v", models.ErrBackend, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: asset download returned empty body", models.ErrBackend)
	}
	return data, nil
}
