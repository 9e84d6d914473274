package audit_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpact/ruleflow/internal/audit"
	"github.com/corpact/ruleflow/pkg/api"
)

func newRecord(job api.JobID, status api.AuditStatus) *api.AuditRecord {
	return &api.AuditRecord{
		JobID:     job,
		TraceID:   "trace-1",
		ModuleID:  "payout",
		SlotID:    "slot-1",
		StepCode:  1,
		Strategy:  api.StrategySerial,
		UnitID:    "validate-account",
		Status:    status,
		Timestamp: time.Now(),
	}
}

func TestStreamRecorder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()

	rec := audit.NewStreamRecorder(client, "ruleflow")
	ctx := context.Background()

	require.NoError(t, rec.Record(ctx, newRecord("JOB-1", api.AuditSuccess)))
	require.NoError(t, rec.Record(ctx, newRecord("JOB-1", api.AuditFailed)))

	entries, err := client.XRange(ctx, "ruleflow:audit", "-", "+").Result()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Equal(t, "JOB-1", entries[0].Values["job_id"])
	assert.Equal(t, "SUCCESS", entries[0].Values["status"])
	assert.Equal(t, "FAILED", entries[1].Values["status"])
	assert.Contains(t, entries[0].Values["record"], `"trace_id":"trace-1"`)
}

func TestMemoryRecorderByJob(t *testing.T) {
	rec := audit.NewMemoryRecorder()
	ctx := context.Background()

	assert.NoError(t, rec.Record(ctx, newRecord("JOB-1", api.AuditSuccess)))
	assert.NoError(t, rec.Record(ctx, newRecord("JOB-2", api.AuditSuccess)))
	assert.NoError(t, rec.Record(ctx, newRecord("JOB-1", api.AuditFailed)))

	assert.Len(t, rec.Records(), 3)
	byJob := rec.ByJob("JOB-1")
	assert.Len(t, byJob, 2)
	assert.Equal(t, api.AuditFailed, byJob[1].Status)
}

func TestMultiFansOut(t *testing.T) {
	a := audit.NewMemoryRecorder()
	b := audit.NewMemoryRecorder()
	m := audit.Multi(a, b)

	assert.NoError(t,
		m.Record(context.Background(), newRecord("JOB-9", api.AuditSuccess)))
	assert.Len(t, a.Records(), 1)
	assert.Len(t, b.Records(), 1)
}
