// Package audit defines the engine's audit port and its recorders. The
// engine emits one record per rule invocation attempt; recorder failures
// are logged by the caller and never fail the step
package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/corpact/ruleflow/pkg/api"
	"github.com/corpact/ruleflow/pkg/log"
)

type (
	// Recorder receives one record per rule invocation attempt
	Recorder interface {
		Record(ctx context.Context, rec *api.AuditRecord) error
	}

	// SlogRecorder writes audit records as structured log lines
	SlogRecorder struct{}

	// MemoryRecorder retains records in memory for tests and for the
	// archive exporter
	MemoryRecorder struct {
		mu      sync.Mutex
		records []*api.AuditRecord
	}

	multi []Recorder
)

// NewMemoryRecorder creates an empty in-memory recorder
func NewMemoryRecorder() *MemoryRecorder {
	return &MemoryRecorder{}
}

// Multi fans each record out to every recorder, joining their errors
func Multi(recorders ...Recorder) Recorder {
	return multi(recorders)
}

func (SlogRecorder) Record(_ context.Context, rec *api.AuditRecord) error {
	slog.Info("Audit",
		log.JobID(rec.JobID),
		log.TraceID(rec.TraceID),
		log.ModuleID(rec.ModuleID),
		slog.String("slot_id", rec.SlotID),
		slog.Int("step_code", rec.StepCode),
		log.Strategy(rec.Strategy),
		log.UnitID(rec.UnitID),
		slog.String("status", string(rec.Status)),
		slog.String("message", rec.Message))
	return nil
}

func (m *MemoryRecorder) Record(
	_ context.Context, rec *api.AuditRecord,
) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

// Records returns a copy of all recorded entries in emission order
func (m *MemoryRecorder) Records() []*api.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*api.AuditRecord, len(m.records))
	copy(out, m.records)
	return out
}

// ByJob returns the recorded entries for one job in emission order
func (m *MemoryRecorder) ByJob(jobID api.JobID) []*api.AuditRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*api.AuditRecord
	for _, rec := range m.records {
		if rec.JobID == jobID {
			out = append(out, rec)
		}
	}
	return out
}

func (m multi) Record(ctx context.Context, rec *api.AuditRecord) error {
	var errs []error
	for _, r := range m {
		if err := r.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
