package api

import "time"

type (
	// EventType names an engine event published on the event hub
	EventType string

	// Event is the envelope streamed to hub consumers and websocket clients
	Event struct {
		Type      EventType `json:"type"`
		JobID     JobID     `json:"job_id,omitempty"`
		TxID      TxID      `json:"tx_id,omitempty"`
		Step      string    `json:"step,omitempty"`
		UnitID    UnitID    `json:"unit_id,omitempty"`
		Status    string    `json:"status,omitempty"`
		Error     string    `json:"error,omitempty"`
		Timestamp time.Time `json:"timestamp"`
	}
)

const (
	EventTypeJobStarted        EventType = "job.started"
	EventTypeJobCompleted      EventType = "job.completed"
	EventTypeJobFailed         EventType = "job.failed"
	EventTypeJobAborted        EventType = "job.aborted"
	EventTypeStepCompleted     EventType = "step.completed"
	EventTypeStepCompensated   EventType = "step.compensated"
	EventTypeAuditRecorded     EventType = "audit.recorded"
	EventTypeVoteReceived      EventType = "vote.received"
	EventTypeConsensusResolved EventType = "consensus.resolved"
)
