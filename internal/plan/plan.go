// Package plan compiles an ordered rule list into execution blocks. The
// compilation is a pure partition: no reordering, no deduplication
package plan

import (
	"errors"

	"github.com/corpact/ruleflow/pkg/api"
)

type builder struct {
	blocks  []*api.ExecutionBlock
	current *api.ExecutionBlock
	perMod  map[api.ModuleID]int
}

var ErrNoRules = errors.New("rule list is empty")

// Compile partitions rules into contiguous blocks, starting a new block
// whenever the module or scope changes from the running accumulator.
// Concatenating all blocks' rules in order reproduces the input exactly
func Compile(rules []*api.Rule) ([]*api.ExecutionBlock, error) {
	if len(rules) == 0 {
		return nil, ErrNoRules
	}

	pb := &builder{perMod: map[api.ModuleID]int{}}
	for _, r := range rules {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		pb.append(r)
	}
	pb.flush()
	return pb.blocks, nil
}

// GroupBySteps splits a block's rules into groups sharing a step ordinal,
// preserving declared order within each group and across group keys
func GroupBySteps(block *api.ExecutionBlock) [][]*api.Rule {
	var groups [][]*api.Rule
	byStep := map[int]int{}
	for _, r := range block.Rules {
		if idx, ok := byStep[r.StepID]; ok {
			groups[idx] = append(groups[idx], r)
			continue
		}
		byStep[r.StepID] = len(groups)
		groups = append(groups, []*api.Rule{r})
	}
	return groups
}

func (pb *builder) append(r *api.Rule) {
	if pb.current != nil &&
		pb.current.ModuleID == r.ModuleID &&
		pb.current.Scope == r.Scope {
		pb.current.Rules = append(pb.current.Rules, r)
		return
	}

	pb.flush()
	idx := pb.perMod[r.ModuleID]
	pb.perMod[r.ModuleID] = idx + 1
	pb.current = &api.ExecutionBlock{
		ID:       api.BlockID(r.ModuleID, idx),
		ModuleID: r.ModuleID,
		Scope:    r.Scope,
		Rules:    []*api.Rule{r},
	}
}

func (pb *builder) flush() {
	if pb.current != nil {
		pb.blocks = append(pb.blocks, pb.current)
		pb.current = nil
	}
}
