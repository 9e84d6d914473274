package api

import "time"

type (
	// JobStatus is the terminal disposition of a job
	JobStatus string

	// JobResult reports a job's terminal state. Failures carry the step and
	// unit that caused them so operators can locate the failing rule in the
	// plan
	JobResult struct {
		JobID       JobID     `json:"job_id"`
		Status      JobStatus `json:"status"`
		FailedStep  string    `json:"failed_step,omitempty"`
		FailedUnit  UnitID    `json:"failed_unit,omitempty"`
		Error       string    `json:"error,omitempty"`
		StartedAt   time.Time `json:"started_at"`
		CompletedAt time.Time `json:"completed_at"`
	}
)

const (
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobAborted   JobStatus = "aborted"
)
