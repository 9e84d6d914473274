package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/corpact/ruleflow/internal/audit"
	"github.com/corpact/ruleflow/internal/config"
	"github.com/corpact/ruleflow/internal/plan"
	"github.com/corpact/ruleflow/internal/rules"
	"github.com/corpact/ruleflow/internal/selector"
	"github.com/corpact/ruleflow/pkg/api"
	"github.com/corpact/ruleflow/pkg/log"
)

// Engine executes jobs against the active rule table. Multiple jobs run
// concurrently on independent goroutines; the only process-wide shared
// mutable structures are the unit registry (read-only after startup) and
// the rule table (replaced atomically, never mutated in place)
type Engine struct {
	cfg      *config.Config
	table    *rules.Table
	registry *Registry
	recorder audit.Recorder
	selector *selector.Evaluator
	hub      *Hub
	coord    *Coordinator
	tasks    *TaskRunner
	results  sync.Map // map[api.JobID]*api.JobResult
}

// ItemsKey is the job payload key carrying per-item work. When present and
// holding a list of objects, every object becomes one packet for ITEM-scope
// blocks; otherwise the whole payload is a single packet
const ItemsKey = "items"

var ErrJobAborted = errors.New("job aborted")

// New creates an engine bound to a rule table, unit registry, and audit
// recorder
func New(
	cfg *config.Config, table *rules.Table, reg *Registry,
	recorder audit.Recorder,
) *Engine {
	hub := NewHub()
	return &Engine{
		cfg:      cfg,
		table:    table,
		registry: reg,
		recorder: recorder,
		selector: selector.New(),
		hub:      hub,
		coord:    NewCoordinator(cfg.Consensus, hub),
		tasks:    NewTaskRunner(),
	}
}

// Hub returns the engine's event hub
func (e *Engine) Hub() *Hub {
	return e.hub
}

// Coordinator returns the consensus coordinator shared by this engine's
// CONSENSUS units and the vote-submission adapter
func (e *Engine) Coordinator() *Coordinator {
	return e.coord
}

// AsyncCompleted returns the number of detached tasks run so far; tests
// use it to await fire-and-forget work deterministically
func (e *Engine) AsyncCompleted() int64 {
	return e.tasks.Completed()
}

// Result returns the last known terminal result for a job
func (e *Engine) Result(jobID api.JobID) (*api.JobResult, bool) {
	v, ok := e.results.Load(jobID)
	if !ok {
		return nil, false
	}
	return v.(*api.JobResult), true
}

// Start initializes all registered units and begins background processing
func (e *Engine) Start(ctx context.Context) error {
	if err := e.registry.InitAll(ctx); err != nil {
		return err
	}
	e.tasks.Start()
	slog.Info("Engine started")
	return nil
}

// Stop drains detached tasks and shuts the units down
func (e *Engine) Stop(ctx context.Context) error {
	e.tasks.Flush()
	e.hub.Close()
	err := e.registry.ShutdownAll(ctx)
	slog.Info("Engine stopped")
	return err
}

// ExecuteJob runs one job through every block of the active plan. It is
// the engine's only externally callable entry point. On step failure the
// completed, compensatable steps are undone before the failure is
// reported; an abort terminates immediately with no compensation
func (e *Engine) ExecuteJob(
	ctx context.Context, jobID api.JobID, data map[string]any,
) (*api.JobResult, error) {
	snap, err := e.table.Snapshot()
	if err != nil {
		return nil, err
	}

	started := time.Now()
	root := NewContext(jobID)
	run := &jobRun{e: e, jobID: jobID, comp: &compensationLog{}}

	e.hub.Publish(&api.Event{Type: api.EventTypeJobStarted, JobID: jobID})
	slog.Info("Job started",
		log.JobID(jobID),
		slog.Int("blocks", len(snap.Blocks)))

	failErr := run.executeBlocks(ctx, snap.Blocks, root, data)
	return e.finishJob(ctx, run, root, started, failErr)
}

func (j *jobRun) executeBlocks(
	ctx context.Context, blocks []*api.ExecutionBlock, root *Context,
	data map[string]any,
) error {
	packets := buildPackets(j.jobID, data)

	for _, block := range blocks {
		if _, aborted := root.Aborted(); aborted {
			return nil
		}

		var err error
		switch block.Scope {
		case api.ScopeJob:
			err = j.executePacket(
				ctx, block, root, api.NewJobPacket(j.jobID, data),
			)
		default:
			for _, p := range packets {
				if err = j.executePacket(ctx, block, root, p); err != nil {
					break
				}
				if _, aborted := root.Aborted(); aborted {
					return nil
				}
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// executePacket runs every step group of a block against one packet with
// fresh item memory
func (j *jobRun) executePacket(
	ctx context.Context, block *api.ExecutionBlock, root *Context,
	p *api.Packet,
) error {
	ec := root.Fork()
	for _, group := range plan.GroupBySteps(block) {
		if err := j.dispatch(ctx, group, ec, p); err != nil {
			return err
		}
		if _, aborted := ec.Aborted(); aborted {
			return nil
		}
	}
	return nil
}

func (e *Engine) finishJob(
	ctx context.Context, run *jobRun, root *Context, started time.Time,
	failErr error,
) (*api.JobResult, error) {
	res := &api.JobResult{
		JobID:       run.jobID,
		Status:      api.JobCompleted,
		StartedAt:   started,
		CompletedAt: time.Now(),
	}

	if reason, aborted := root.Aborted(); aborted {
		res.Status = api.JobAborted
		res.Error = reason
		e.storeResult(res, api.EventTypeJobAborted)
		slog.Error("Job aborted",
			log.JobID(run.jobID),
			log.ErrorString(reason))
		return res, fmt.Errorf("%w: %s", ErrJobAborted, reason)
	}

	if failErr != nil {
		run.compensate(ctx)

		res.Status = api.JobFailed
		res.Error = failErr.Error()
		var se *StepError
		if errors.As(failErr, &se) {
			res.FailedStep = se.Step.String()
			res.FailedUnit = se.Step.UnitID
		}
		e.storeResult(res, api.EventTypeJobFailed)
		slog.Error("Job failed",
			log.JobID(run.jobID),
			slog.String("failed_step", res.FailedStep),
			log.Error(failErr))
		return res, failErr
	}

	e.storeResult(res, api.EventTypeJobCompleted)
	slog.Info("Job completed",
		log.JobID(run.jobID))
	return res, nil
}

func (e *Engine) storeResult(res *api.JobResult, evType api.EventType) {
	e.results.Store(res.JobID, res)
	e.hub.Publish(&api.Event{
		Type:   evType,
		JobID:  res.JobID,
		Step:   res.FailedStep,
		UnitID: res.FailedUnit,
		Status: string(res.Status),
		Error:  res.Error,
	})
}

// buildPackets derives the job's work items. A payload with an "items"
// list yields one packet per item, each overlaying its item fields on the
// job-level fields; anything else is treated as a single work item
func buildPackets(jobID api.JobID, data map[string]any) []*api.Packet {
	items, ok := data[ItemsKey].([]any)
	if !ok || len(items) == 0 {
		return []*api.Packet{api.NewPacket(string(jobID), data)}
	}

	base := map[string]any{}
	for k, v := range data {
		if k != ItemsKey {
			base[k] = v
		}
	}

	var packets []*api.Packet
	for i, item := range items {
		fields, ok := item.(map[string]any)
		if !ok {
			continue
		}
		merged := map[string]any{}
		for k, v := range base {
			merged[k] = v
		}
		for k, v := range fields {
			merged[k] = v
		}
		packets = append(packets,
			api.NewPacket(fmt.Sprintf("%s-%d", jobID, i+1), merged))
	}
	if len(packets) == 0 {
		return []*api.Packet{api.NewPacket(string(jobID), data)}
	}
	return packets
}
