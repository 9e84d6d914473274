package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/corpact/ruleflow/pkg/api"
)

// StreamRecorder appends audit records to a Redis stream so downstream
// audit storage can consume them at its own pace
type StreamRecorder struct {
	client *redis.Client
	stream string
}

const streamKeySuffix = ":audit"

// NewStreamRecorder creates a recorder writing to "{prefix}:audit"
func NewStreamRecorder(client *redis.Client, prefix string) *StreamRecorder {
	return &StreamRecorder{
		client: client,
		stream: prefix + streamKeySuffix,
	}
}

func (s *StreamRecorder) Record(
	ctx context.Context, rec *api.AuditRecord,
) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		Values: map[string]any{
			"job_id":    string(rec.JobID),
			"unit_id":   string(rec.UnitID),
			"status":    string(rec.Status),
			"timestamp": rec.Timestamp.Format(time.RFC3339Nano),
			"record":    string(payload),
		},
	}).Err()
}
