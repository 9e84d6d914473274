package api

import "github.com/google/uuid"

// Packet is one unit of work's mutable data payload flowing through the
// pipeline. A JOB-scope block runs once per job against a synthetic packet
// rather than once per item
type Packet struct {
	ID      string            `json:"id"`
	TraceID string            `json:"trace_id"`
	Data    map[string]any    `json:"data"`
	Meta    map[string]string `json:"meta,omitempty"`
}

// NewPacket creates a packet with its own trace id and non-nil maps
func NewPacket(id string, data map[string]any) *Packet {
	if data == nil {
		data = map[string]any{}
	}
	return &Packet{
		ID:      id,
		TraceID: uuid.NewString(),
		Data:    data,
		Meta:    map[string]string{},
	}
}

// NewJobPacket creates the synthetic packet used for JOB-scope blocks
func NewJobPacket(jobID JobID, data map[string]any) *Packet {
	p := NewPacket("job:"+string(jobID), data)
	p.Meta["scope"] = string(ScopeJob)
	return p
}
