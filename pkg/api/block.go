package api

import "fmt"

// ExecutionBlock is a contiguous run of rules sharing the same module and
// scope. Blocks are a pure partition of the loaded rule list: concatenating
// all blocks' rules in order reproduces the original list exactly
type ExecutionBlock struct {
	ID       string   `json:"id"`
	ModuleID ModuleID `json:"module_id"`
	Scope    Scope    `json:"scope"`
	Rules    []*Rule  `json:"rules"`
}

// BlockID builds the deterministic block identifier from a module and the
// block's ordinal within that module
func BlockID(moduleID ModuleID, index int) string {
	return fmt.Sprintf("%s_%d", moduleID, index)
}
