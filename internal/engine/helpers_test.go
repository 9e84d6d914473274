package engine

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/corpact/ruleflow/internal/audit"
	"github.com/corpact/ruleflow/internal/config"
	"github.com/corpact/ruleflow/internal/rules"
	"github.com/corpact/ruleflow/pkg/api"
)

type (
	// stubUnit is a scriptable unit for engine tests. It records every
	// invocation so ordering and fan-in properties can be asserted
	stubUnit struct {
		id         api.UnitID
		execute    func(ctx context.Context, ec *Context, p *api.Packet) error
		compensate func(ctx context.Context, ec *Context, p *api.Packet) error

		mu          sync.Mutex
		executed    []string
		compensated []string
	}

	testEnv struct {
		engine   *Engine
		registry *Registry
		recorder *audit.MemoryRecorder
		table    *rules.Table
	}
)

func (u *stubUnit) ID() api.UnitID {
	return u.id
}

func (u *stubUnit) Execute(
	ctx context.Context, ec *Context, p *api.Packet,
) error {
	u.mu.Lock()
	u.executed = append(u.executed, p.ID)
	u.mu.Unlock()
	if u.execute != nil {
		return u.execute(ctx, ec, p)
	}
	return nil
}

func (u *stubUnit) Compensate(
	ctx context.Context, ec *Context, p *api.Packet,
) error {
	u.mu.Lock()
	u.compensated = append(u.compensated, p.ID)
	u.mu.Unlock()
	if u.compensate != nil {
		return u.compensate(ctx, ec, p)
	}
	return nil
}

func (u *stubUnit) executions() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string{}, u.executed...)
}

func (u *stubUnit) compensations() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string{}, u.compensated...)
}

func newTestEnv(
	t *testing.T, ruleSet []*api.Rule, units ...*stubUnit,
) *testEnv {
	t.Helper()

	reg := NewRegistry()
	for _, u := range units {
		require.NoError(t, reg.Register(u))
	}

	table := rules.NewTable()
	require.NoError(t, table.Replace(ruleSet))

	recorder := audit.NewMemoryRecorder()
	cfg := config.NewDefaultConfig()
	cfg.Retry.Backoff = 1 // keep retry tests fast

	eng := New(cfg, table, reg, recorder)
	require.NoError(t, eng.Start(context.Background()))
	t.Cleanup(func() {
		_ = eng.Stop(context.Background())
	})

	return &testEnv{
		engine:   eng,
		registry: reg,
		recorder: recorder,
		table:    table,
	}
}

func testConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Retry.Backoff = 1
	return cfg
}

func emptyTable() *rules.Table {
	return rules.NewTable()
}

func noopRecorder() audit.Recorder {
	return audit.NewMemoryRecorder()
}

func itemRule(
	step int, unit api.UnitID, strategy api.Strategy,
) *api.Rule {
	return &api.Rule{
		ModuleID: "payout",
		SlotID:   "slot-1",
		StepID:   step,
		UnitID:   unit,
		Strategy: strategy,
		Scope:    api.ScopeItem,
	}
}

func jobRule(
	step int, unit api.UnitID, strategy api.Strategy,
) *api.Rule {
	r := itemRule(step, unit, strategy)
	r.Scope = api.ScopeJob
	return r
}
