// Package idempotency provides the Redis-backed submission gate that keeps
// a job id from entering the engine twice within its processing window
package idempotency

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/corpact/ruleflow/pkg/api"
)

// Gate guards job submission with a per-job Redis key
type Gate struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// DefaultTTL bounds how long a claimed job id stays locked when the
// holder never releases it
const DefaultTTL = time.Hour

// NewGate creates an idempotency gate writing keys under
// "{prefix}:job:{id}"
func NewGate(client *redis.Client, prefix string) *Gate {
	return &Gate{
		client: client,
		prefix: prefix,
		ttl:    DefaultTTL,
	}
}

// Acquire claims a job id. It returns false when the id is already claimed
// and still inside its window
func (g *Gate) Acquire(ctx context.Context, jobID api.JobID) (bool, error) {
	return g.client.SetNX(ctx, g.key(jobID), "1", g.ttl).Result()
}

// Release frees a job id after its terminal result so a failed job can be
// resubmitted
func (g *Gate) Release(ctx context.Context, jobID api.JobID) error {
	return g.client.Del(ctx, g.key(jobID)).Err()
}

func (g *Gate) key(jobID api.JobID) string {
	return g.prefix + ":job:" + string(jobID)
}
