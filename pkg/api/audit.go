package api

import "time"

type (
	// AuditStatus is the outcome of one rule invocation attempt
	AuditStatus string

	// AuditRecord captures one rule invocation attempt for the audit sink.
	// One record is emitted per attempt, including retries
	AuditRecord struct {
		JobID     JobID       `json:"job_id"`
		TraceID   string      `json:"trace_id"`
		ModuleID  ModuleID    `json:"module_id"`
		SlotID    string      `json:"slot_id"`
		StepCode  int         `json:"step_code"`
		Strategy  Strategy    `json:"strategy"`
		UnitID    UnitID      `json:"unit_id"`
		Status    AuditStatus `json:"status"`
		Message   string      `json:"message,omitempty"`
		Timestamp time.Time   `json:"timestamp"`
	}
)

const (
	AuditSuccess      AuditStatus = "SUCCESS"
	AuditFailed       AuditStatus = "FAILED"
	AuditUnitNotFound AuditStatus = "UNIT_NOT_FOUND"
)
