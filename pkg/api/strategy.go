package api

import "strings"

// Strategy is the concurrency and control-flow discipline applied to one
// group of rules sharing a step
type Strategy string

const (
	StrategySerial     Strategy = "SERIAL"
	StrategyParallel   Strategy = "PARALLEL"
	StrategyFirstMatch Strategy = "FIRST_MATCH"
	StrategyConsensus  Strategy = "CONSENSUS"
	StrategyRemote     Strategy = "REMOTE"
	StrategyRetry      Strategy = "RETRY"
	StrategyAsync      Strategy = "ASYNC"
)

var strategies = map[Strategy]struct{}{
	StrategySerial:     {},
	StrategyParallel:   {},
	StrategyFirstMatch: {},
	StrategyConsensus:  {},
	StrategyRemote:     {},
	StrategyRetry:      {},
	StrategyAsync:      {},
}

// ParseStrategy maps a strategy name to a Strategy, case-insensitively.
// An unrecognized name falls back to SERIAL rather than rejecting the
// plan, so a misspelled row degrades to the safest discipline
func ParseStrategy(name string) Strategy {
	s := Strategy(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := strategies[s]; ok {
		return s
	}
	return StrategySerial
}

// IsKnown reports whether the strategy is one of the defined disciplines
func (s Strategy) IsKnown() bool {
	_, ok := strategies[s]
	return ok
}
