package rules

import (
	"errors"
	"sync/atomic"

	"github.com/corpact/ruleflow/internal/plan"
	"github.com/corpact/ruleflow/pkg/api"
)

type (
	// Table holds the active rule set and its compiled plan. A reload
	// replaces the whole snapshot atomically; readers never observe a
	// partially applied rule set
	Table struct {
		active atomic.Pointer[Snapshot]
	}

	// Snapshot is one immutable compiled rule set
	Snapshot struct {
		Rules  []*api.Rule
		Blocks []*api.ExecutionBlock
	}
)

var ErrNoActivePlan = errors.New("no active rule set loaded")

// NewTable creates an empty rule table
func NewTable() *Table {
	return &Table{}
}

// Replace compiles the rules and swaps them in as the active set. A
// compilation failure leaves the previous set untouched
func (t *Table) Replace(rules []*api.Rule) error {
	blocks, err := plan.Compile(rules)
	if err != nil {
		return err
	}
	t.active.Store(&Snapshot{Rules: rules, Blocks: blocks})
	return nil
}

// Snapshot returns the current compiled rule set
func (t *Table) Snapshot() (*Snapshot, error) {
	s := t.active.Load()
	if s == nil {
		return nil, ErrNoActivePlan
	}
	return s, nil
}
