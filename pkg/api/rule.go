package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type (
	// JobID is a unique identifier for a job
	JobID string

	// ModuleID identifies a module within a workflow
	ModuleID string

	// UnitID identifies a registered work unit (cartridge)
	UnitID string

	// Scope determines whether a block of rules runs once per job or once
	// per work item
	Scope string

	// Rule is one immutable row of the execution plan. Rules are loaded as
	// a complete set and never mutated; a reload replaces the active set
	// atomically
	Rule struct {
		RegistrarID   string          `json:"registrar_id"`
		WorkflowID    string          `json:"workflow_id"`
		ModuleID      ModuleID        `json:"module_id"`
		ModuleName    string          `json:"module_name"`
		SlotID        string          `json:"slot_id"`
		SlotName      string          `json:"slot_name"`
		StepID        int             `json:"step_id"`
		UnitID        UnitID          `json:"unit_id"`
		UnitName      string          `json:"unit_name"`
		Strategy      Strategy        `json:"strategy"`
		Selector      string          `json:"selector"`
		Scope         Scope           `json:"scope"`
		Compensatable bool            `json:"compensatable,omitempty"`
		Config        json.RawMessage `json:"config,omitempty"`
	}

	// RuleStep identifies a rule's position within the plan for reporting
	RuleStep struct {
		ModuleID ModuleID
		StepID   int
		UnitID   UnitID
	}
)

const (
	ScopeJob  Scope = "JOB"
	ScopeItem Scope = "ITEM"
)

var (
	ErrMissingModuleID = errors.New("rule is missing a module id")
	ErrMissingUnitID   = errors.New("rule is missing a unit id")
	ErrInvalidScope    = errors.New("invalid rule scope")
)

// ParseScope maps a scope name to a Scope, case-insensitively. Unlike
// strategies, an unknown scope is an error: getting it wrong flips a rule
// between per-job and per-item execution
func ParseScope(name string) (Scope, error) {
	switch Scope(strings.ToUpper(strings.TrimSpace(name))) {
	case ScopeJob:
		return ScopeJob, nil
	case ScopeItem:
		return ScopeItem, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidScope, name)
	}
}

// Validate checks that a rule carries the fields the engine depends on
func (r *Rule) Validate() error {
	if r.ModuleID == "" {
		return ErrMissingModuleID
	}
	if r.UnitID == "" {
		return fmt.Errorf("%w: module %s step %d",
			ErrMissingUnitID, r.ModuleID, r.StepID)
	}
	if r.Scope != ScopeJob && r.Scope != ScopeItem {
		return fmt.Errorf("%w: %q", ErrInvalidScope, r.Scope)
	}
	return nil
}

// Step returns the rule's reporting position
func (r *Rule) Step() RuleStep {
	return RuleStep{
		ModuleID: r.ModuleID,
		StepID:   r.StepID,
		UnitID:   r.UnitID,
	}
}

func (s RuleStep) String() string {
	return fmt.Sprintf("%s/%d/%s", s.ModuleID, s.StepID, s.UnitID)
}
