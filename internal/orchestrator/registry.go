package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"storyboard-server/internal/models"
)

// Registry coordinates jobs across orchestrator instances: it prevents
// two concurrent polls for the same shot and media kind, and issues
// monotonic submission sequences per shot+kind pair.
type Registry interface {
	// Claim marks a shot+kind pair as having an active job. Returns
	// false when another job already holds the claim.
	Claim(ctx context.Context, shotID uuid.UUID, kind models.MediaKind) (bool, error)
	// Release frees the claim. Safe to call for an unclaimed pair.
	Release(ctx context.Context, shotID uuid.UUID, kind models.MediaKind) error
	// NextSeq returns the next submission sequence for a shot+kind pair.
	NextSeq(ctx context.Context, shotID uuid.UUID, kind models.MediaKind) (int64, error)
}

type redisRegistry struct {
	client   *redis.Client
	claimTTL time.Duration
}

var _ Registry = (*redisRegistry)(nil)

// NewRedisRegistry creates a Redis-backed registry. The claim TTL bounds
// how long a crashed worker can block resubmission for a pair.
func NewRedisRegistry(client *redis.Client, claimTTL time.Duration) Registry {
	return &redisRegistry{client: client, claimTTL: claimTTL}
}

func activeJobKey(shotID uuid.UUID, kind models.MediaKind) string {
	return fmt.Sprintf("job:active:%s:%s", shotID, kind)
}

func seqKey(shotID uuid.UUID, kind models.MediaKind) string {
	return fmt.Sprintf("job:seq:%s:%s", shotID, kind)
}

func (r *redisRegistry) Claim(ctx context.Context, shotID uuid.UUID, kind models.MediaKind) (bool, error) {
	ok, err := r.client.SetNX(ctx, activeJobKey(shotID, kind), time.Now().UTC().Format(time.RFC3339), r.claimTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim job slot for shot %s kind %s: %w", shotID, kind, err)
	}
	return ok, nil
}

func (r *redisRegistry) Release(ctx context.Context, shotID uuid.UUID, kind models.MediaKind) error {
	if err := r.client.Del(ctx, activeJobKey(shotID, kind)).Err(); err != nil {
		return fmt.Errorf("failed to release job slot for shot %s kind %s: %w", shotID, kind, err)
	}
	return nil
}

func (r *redisRegistry) NextSeq(ctx context.Context, shotID uuid.UUID, kind models.MediaKind) (int64, error) {
	seq, err := r.client.Incr(ctx, seqKey(shotID, kind)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to issue submission sequence for shot %s kind %s: %w", shotID, kind, err)
	}
	return seq, nil
}
