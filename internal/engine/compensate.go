package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/corpact/ruleflow/pkg/api"
	"github.com/corpact/ruleflow/pkg/log"
)

type (
	// compensationLog records each completed (rule, packet) invocation in
	// completion order so a later failure can walk the undo path in strict
	// reverse
	compensationLog struct {
		mu      sync.Mutex
		entries []completion
	}

	completion struct {
		rule   *api.Rule
		ec     *Context
		packet *api.Packet
	}
)

func (l *compensationLog) record(rule *api.Rule, ec *Context, p *api.Packet) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, completion{rule: rule, ec: ec, packet: p})
}

func (l *compensationLog) reversed() []completion {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]completion, len(l.entries))
	for i, c := range l.entries {
		out[len(l.entries)-1-i] = c
	}
	return out
}

// compensate undoes the observable effects of the job's completed,
// compensatable steps in reverse completion order. Each unit's Compensate
// receives the same packet and context as its original Execute. Undo
// failures are logged, never propagated: compensation is best-effort, not
// recursive
func (j *jobRun) compensate(ctx context.Context) {
	for _, done := range j.comp.reversed() {
		if !done.rule.Compensatable {
			continue
		}
		unit, ok := j.e.registry.Lookup(done.rule.UnitID)
		if !ok {
			continue
		}
		comp, ok := unit.(Compensator)
		if !ok {
			slog.Warn("Compensatable rule bound to unit without undo logic",
				log.JobID(j.jobID),
				log.UnitID(done.rule.UnitID))
			continue
		}

		if err := comp.Compensate(ctx, done.ec, done.packet); err != nil {
			slog.Error("Compensation failed",
				log.JobID(j.jobID),
				log.UnitID(done.rule.UnitID),
				log.StepID(done.rule.StepID),
				log.Error(err))
			continue
		}

		j.e.hub.Publish(&api.Event{
			Type:   api.EventTypeStepCompensated,
			JobID:  j.jobID,
			Step:   done.rule.Step().String(),
			UnitID: done.rule.UnitID,
		})
	}
}
