package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corpact/ruleflow/pkg/api"
	"github.com/corpact/ruleflow/pkg/log"
)

type (
	// jobRun carries the per-job execution state threaded through strategy
	// dispatch: the owning engine, the job id, and the compensation log
	jobRun struct {
		e     *Engine
		jobID api.JobID
		comp  *compensationLog
	}

	// StepError wraps a unit failure with the plan position that produced
	// it so job failures can name the offending rule
	StepError struct {
		Step api.RuleStep
		Err  error
	}
)

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// invoke wraps a single unit invocation uniformly: stamp the step prefix
// into item memory, resolve the unit, execute, audit the outcome, and
// re-raise failures for the strategy's aggregation logic
func (j *jobRun) invoke(
	ctx context.Context, rule *api.Rule, ec *Context, p *api.Packet,
) error {
	ec.Set(KeyStepPrefix, rule.Step().String())

	unit, ok := j.e.registry.Lookup(rule.UnitID)
	if !ok {
		j.audit(ctx, rule, p, api.AuditUnitNotFound, "")
		return &StepError{
			Step: rule.Step(),
			Err:  fmt.Errorf("%w: %s", ErrUnitNotFound, rule.UnitID),
		}
	}

	if err := unit.Execute(ctx, ec, p); err != nil {
		j.audit(ctx, rule, p, api.AuditFailed, err.Error())
		slog.Error("Unit execution failed",
			log.JobID(j.jobID),
			log.UnitID(rule.UnitID),
			log.StepID(rule.StepID),
			log.Error(err))

		var se *StepError
		if errors.As(err, &se) {
			return err
		}
		return &StepError{Step: rule.Step(), Err: err}
	}

	j.audit(ctx, rule, p, api.AuditSuccess, "")
	j.comp.record(rule, ec, p)
	j.e.hub.Publish(&api.Event{
		Type:   api.EventTypeStepCompleted,
		JobID:  j.jobID,
		Step:   rule.Step().String(),
		UnitID: rule.UnitID,
	})
	return nil
}

func (j *jobRun) audit(
	ctx context.Context, rule *api.Rule, p *api.Packet,
	status api.AuditStatus, msg string,
) {
	rec := &api.AuditRecord{
		JobID:     j.jobID,
		TraceID:   p.TraceID,
		ModuleID:  rule.ModuleID,
		SlotID:    rule.SlotID,
		StepCode:  rule.StepID,
		Strategy:  rule.Strategy,
		UnitID:    rule.UnitID,
		Status:    status,
		Message:   msg,
		Timestamp: time.Now(),
	}
	if err := j.e.recorder.Record(ctx, rec); err != nil {
		slog.Error("Audit recorder failed",
			log.JobID(j.jobID),
			log.Error(err))
	}

	j.e.hub.Publish(&api.Event{
		Type:   api.EventTypeAuditRecorded,
		JobID:  j.jobID,
		Step:   rule.Step().String(),
		UnitID: rule.UnitID,
		Status: string(status),
	})
}
