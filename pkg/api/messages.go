package api

type (
	// SubmitJobRequest contains parameters for submitting a job
	SubmitJobRequest struct {
		JobID JobID          `json:"job_id"`
		Data  map[string]any `json:"data"`
	}

	// JobAcceptedResponse is returned when a job submission is accepted
	JobAcceptedResponse struct {
		Message string `json:"message"`
		JobID   JobID  `json:"job_id"`
	}

	// SubmitVoteRequest contains one approval vote for a waiting job
	SubmitVoteRequest struct {
		ApproverID string `json:"approver_id"`
	}

	// VoteResponse reports the disposition of a submitted vote
	VoteResponse struct {
		TxID   TxID       `json:"tx_id"`
		Status VoteStatus `json:"status"`
	}

	// RulesResponse describes the active plan
	RulesResponse struct {
		Blocks []*ExecutionBlock `json:"blocks"`
		Count  int               `json:"count"`
	}

	// HealthResponse reports service liveness and in-flight consensus
	// waits
	HealthResponse struct {
		Service string `json:"service"`
		Status  string `json:"status"`
		Pending int    `json:"pending_consensus"`
	}

	// MessageResponse contains a simple message string
	MessageResponse struct {
		Message string `json:"message"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}
)
