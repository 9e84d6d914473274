// Package archive exports completed jobs' audit trails to blob storage so
// long-term audit retention lives outside the engine's memory
package archive

import (
	"context"
	"encoding/json"

	"gocloud.dev/blob"

	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/corpact/ruleflow/pkg/api"
)

// Exporter writes one JSON document per job at "{prefix}{jobID}.json",
// supporting S3, GCS, Azure Blob, and local file buckets
type Exporter struct {
	bucket *blob.Bucket
	prefix string
}

type trail struct {
	Result  *api.JobResult     `json:"result"`
	Records []*api.AuditRecord `json:"records"`
}

// NewExporter opens the bucket at the given URL
func NewExporter(
	ctx context.Context, bucketURL, prefix string,
) (*Exporter, error) {
	bucket, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, err
	}
	return &Exporter{bucket: bucket, prefix: prefix}, nil
}

// NewExporterWithBucket wraps an already-open bucket; tests use this with
// an in-memory bucket
func NewExporterWithBucket(bucket *blob.Bucket, prefix string) *Exporter {
	return &Exporter{bucket: bucket, prefix: prefix}
}

// Export writes a job's terminal result and audit records
func (e *Exporter) Export(
	ctx context.Context, res *api.JobResult, records []*api.AuditRecord,
) error {
	data, err := json.Marshal(&trail{Result: res, Records: records})
	if err != nil {
		return err
	}
	return e.bucket.WriteAll(ctx, e.keyFor(res.JobID), data, nil)
}

// Close releases the underlying bucket
func (e *Exporter) Close() error {
	return e.bucket.Close()
}

func (e *Exporter) keyFor(jobID api.JobID) string {
	return e.prefix + string(jobID) + ".json"
}
