package archive_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gocloud.dev/blob/memblob"

	"github.com/corpact/ruleflow/internal/archive"
	"github.com/corpact/ruleflow/pkg/api"
)

func TestExportWritesTrail(t *testing.T) {
	as := assert.New(t)
	bucket := memblob.OpenBucket(nil)
	exp := archive.NewExporterWithBucket(bucket, "audit/")
	defer func() { _ = exp.Close() }()

	res := &api.JobResult{
		JobID:       "job-1",
		Status:      api.JobCompleted,
		StartedAt:   time.Now(),
		CompletedAt: time.Now(),
	}
	recs := []*api.AuditRecord{{
		JobID:    "job-1",
		ModuleID: "payout",
		UnitID:   "log-unit",
		Status:   api.AuditSuccess,
	}}

	err := exp.Export(context.Background(), res, recs)
	as.NoError(err)

	data, err := bucket.ReadAll(context.Background(), "audit/job-1.json")
	as.NoError(err)

	var got struct {
		Result  *api.JobResult     `json:"result"`
		Records []*api.AuditRecord `json:"records"`
	}
	as.NoError(json.Unmarshal(data, &got))
	as.Equal(api.JobCompleted, got.Result.Status)
	as.Len(got.Records, 1)
	as.Equal(api.AuditSuccess, got.Records[0].Status)
}

func TestExportEmptyRecords(t *testing.T) {
	as := assert.New(t)
	bucket := memblob.OpenBucket(nil)
	exp := archive.NewExporterWithBucket(bucket, "")
	defer func() { _ = exp.Close() }()

	res := &api.JobResult{JobID: "job-2", Status: api.JobFailed}
	as.NoError(exp.Export(context.Background(), res, nil))

	exists, err := bucket.Exists(context.Background(), "job-2.json")
	as.NoError(err)
	as.True(exists)
}
