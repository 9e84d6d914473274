package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/corpact/ruleflow/pkg/api"
	"github.com/corpact/ruleflow/pkg/log"
)

var (
	ErrNoRuleMatched = errors.New("no rule in group completed successfully")
	ErrRetryExceeded = errors.New("retry attempts exhausted")
)

// dispatch executes one group of rules sharing a step under the group's
// declared strategy. Rules whose selector does not match the packet are
// skipped entirely: no unit invocation, no audit entry
func (j *jobRun) dispatch(
	ctx context.Context, group []*api.Rule, ec *Context, p *api.Packet,
) error {
	activated := make([]*api.Rule, 0, len(group))
	for _, rule := range group {
		if j.e.selector.Activates(rule.Selector, p.Data) {
			activated = append(activated, rule)
		}
	}
	if len(activated) == 0 {
		return nil
	}

	switch api.ParseStrategy(string(group[0].Strategy)) {
	case api.StrategyParallel:
		return j.runParallel(ctx, activated, ec, p)
	case api.StrategyFirstMatch:
		return j.runFirstMatch(ctx, activated, ec, p)
	case api.StrategyConsensus:
		return j.runConsensus(ctx, activated, ec, p)
	case api.StrategyRemote:
		return j.runRemote(ctx, activated, ec, p)
	case api.StrategyRetry:
		return j.runRetry(ctx, activated, ec, p)
	case api.StrategyAsync:
		return j.runAsync(ctx, activated, ec, p)
	default:
		return j.runSerial(ctx, activated, ec, p)
	}
}

// runSerial executes rules one at a time in declared order; the first
// failure aborts the rest of the group
func (j *jobRun) runSerial(
	ctx context.Context, rules []*api.Rule, ec *Context, p *api.Packet,
) error {
	for _, rule := range rules {
		if err := j.invoke(ctx, rule, ec, p); err != nil {
			return err
		}
		if _, aborted := ec.Aborted(); aborted {
			return nil
		}
	}
	return nil
}

// runParallel fans all rules out concurrently and waits for every branch
// to finish before reporting. A failing branch never cancels its siblings;
// the first-encountered error in declared order is representative
func (j *jobRun) runParallel(
	ctx context.Context, rules []*api.Rule, ec *Context, p *api.Packet,
) error {
	var wg sync.WaitGroup
	errs := make([]error, len(rules))
	for i, rule := range rules {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = j.invoke(ctx, rule, ec, p)
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// runFirstMatch tries rules in declared order; the first success wins and
// the rest are skipped. Exhausting every rule fails the group with a
// summary naming the attempt count
func (j *jobRun) runFirstMatch(
	ctx context.Context, rules []*api.Rule, ec *Context, p *api.Packet,
) error {
	for i, rule := range rules {
		if err := j.invoke(ctx, rule, ec, p); err == nil {
			return nil
		}
		slog.Debug("First-match candidate failed",
			log.JobID(j.jobID),
			log.UnitID(rule.UnitID),
			slog.Int("attempt", i+1))
	}
	return &StepError{
		Step: rules[0].Step(),
		Err: fmt.Errorf("%w: %d attempted",
			ErrNoRuleMatched, len(rules)),
	}
}

// runConsensus is SERIAL for control flow, executed on a dedicated
// goroutine so a unit blocking inside the consensus coordinator cannot
// starve the engine's other work
func (j *jobRun) runConsensus(
	ctx context.Context, rules []*api.Rule, ec *Context, p *api.Packet,
) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- j.runSerial(ctx, rules, ec, p)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// runRemote is SERIAL with per-invocation latency measurement; the
// external call's own deadline lives at the adapter layer
func (j *jobRun) runRemote(
	ctx context.Context, rules []*api.Rule, ec *Context, p *api.Packet,
) error {
	for _, rule := range rules {
		start := time.Now()
		err := j.invoke(ctx, rule, ec, p)
		slog.Info("Remote unit returned",
			log.JobID(j.jobID),
			log.UnitID(rule.UnitID),
			slog.Int64("elapsed_ms", time.Since(start).Milliseconds()))
		if err != nil {
			return err
		}
	}
	return nil
}

// runRetry executes each rule with a bounded number of attempts and a
// fixed delay between them; one rule exhausting its attempts aborts the
// group, matching SERIAL semantics
func (j *jobRun) runRetry(
	ctx context.Context, rules []*api.Rule, ec *Context, p *api.Packet,
) error {
	maxAttempts := j.e.cfg.Retry.MaxAttempts
	backoff := j.e.cfg.Retry.Backoff

	for _, rule := range rules {
		var last error
		for attempt := 1; attempt <= maxAttempts; attempt++ {
			last = j.invoke(ctx, rule, ec, p)
			if last == nil {
				break
			}
			slog.Warn("Unit attempt failed",
				log.JobID(j.jobID),
				log.UnitID(rule.UnitID),
				slog.Int("attempt", attempt),
				log.Error(last))
			if attempt < maxAttempts {
				if err := sleepCtx(ctx, backoff); err != nil {
					return err
				}
			}
		}
		if last != nil {
			return &StepError{
				Step: rule.Step(),
				Err: fmt.Errorf("%w after %d attempts: %w",
					ErrRetryExceeded, maxAttempts, last),
			}
		}
	}
	return nil
}

// runAsync detaches each rule onto the background task runner and returns
// immediately. Failures are logged only; this strategy must not carry
// steps the job's correctness depends on
func (j *jobRun) runAsync(
	ctx context.Context, rules []*api.Rule, ec *Context, p *api.Packet,
) error {
	detached := context.WithoutCancel(ctx)
	for _, rule := range rules {
		j.e.tasks.Enqueue(func() {
			if err := j.invoke(detached, rule, ec, p); err != nil {
				slog.Error("Detached rule failed",
					log.JobID(j.jobID),
					log.UnitID(rule.UnitID),
					log.Error(err))
			}
		})
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
