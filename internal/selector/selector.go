// Package selector evaluates rule activation predicates against packet
// data. A selector is either one of the constant forms, a single comparison
// expression (e.g. "Net_Amount > 1000000"), or a Lua expression carrying
// the "lua:" prefix.
//
// A malformed selector never fails a job: it logs a warning once and
// deactivates the rule for every packet it is evaluated against
package selector

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/corpact/ruleflow/pkg/log"
)

// Evaluator evaluates selectors with a shared Lua environment and a
// warn-once cache for malformed expressions
type Evaluator struct {
	lua    *LuaEnv
	warned sync.Map // map[string]struct{}
}

// LuaPrefix marks a selector that should be evaluated as a Lua expression
const LuaPrefix = "lua:"

// New creates a selector evaluator
func New() *Evaluator {
	return &Evaluator{lua: NewLuaEnv()}
}

// Activates reports whether the selector matches the packet data. The
// constant selectors "", "*", "TRUE" and "ALWAYS_TRUE" always activate;
// "FALSE" never does. Unsupported or malformed expressions evaluate false
func (e *Evaluator) Activates(sel string, data map[string]any) bool {
	trimmed := strings.TrimSpace(sel)
	switch strings.ToUpper(trimmed) {
	case "", "*", "TRUE", "ALWAYS_TRUE":
		return true
	case "FALSE":
		return false
	}

	if script, ok := strings.CutPrefix(trimmed, LuaPrefix); ok {
		res, err := e.lua.EvalPredicate(script, data)
		if err != nil {
			e.warnOnce(sel, err)
			return false
		}
		return res
	}

	res, err := evalComparison(trimmed, data)
	if err != nil {
		e.warnOnce(sel, err)
		return false
	}
	return res
}

func (e *Evaluator) warnOnce(sel string, err error) {
	if _, loaded := e.warned.LoadOrStore(sel, struct{}{}); loaded {
		return
	}
	slog.Warn("Selector deactivated",
		log.Selector(sel),
		log.Error(err))
}
