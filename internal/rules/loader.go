// Package rules loads rule tables from their configuration source and
// maintains the active, atomically replaceable rule set
package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/tidwall/gjson"

	"github.com/corpact/ruleflow/pkg/api"
)

var (
	ErrNotArray   = errors.New("rule source must be a JSON array")
	ErrNoRules    = errors.New("rule source contains no rules")
	ErrInvalidRow = errors.New("invalid rule row")
)

// Load reads and parses a rule file. Any unparsable or invalid row fails
// the whole load, naming the source and row so nothing vanishes silently
func Load(path string) ([]*api.Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// Parse parses a JSON array of rule rows. The source name is used only for
// error reporting
func Parse(data []byte, source string) ([]*api.Rule, error) {
	parsed := gjson.ParseBytes(data)
	if !parsed.IsArray() {
		return nil, fmt.Errorf("%w: %s", ErrNotArray, source)
	}

	var rules []*api.Rule
	var rowErr error
	parsed.ForEach(func(_, row gjson.Result) bool {
		r, err := parseRow(row)
		if err != nil {
			rowErr = fmt.Errorf("%w: %s row %d: %w",
				ErrInvalidRow, source, len(rules), err)
			return false
		}
		rules = append(rules, r)
		return true
	})
	if rowErr != nil {
		return nil, rowErr
	}
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoRules, source)
	}
	return rules, nil
}

func parseRow(row gjson.Result) (*api.Rule, error) {
	if !row.IsObject() {
		return nil, errors.New("row is not an object")
	}

	scope, err := api.ParseScope(row.Get("scope").String())
	if err != nil {
		return nil, err
	}

	r := &api.Rule{
		RegistrarID:   row.Get("registrar_id").String(),
		WorkflowID:    row.Get("workflow_id").String(),
		ModuleID:      api.ModuleID(row.Get("module_id").String()),
		ModuleName:    row.Get("module_name").String(),
		SlotID:        row.Get("slot_id").String(),
		SlotName:      row.Get("slot_name").String(),
		StepID:        int(row.Get("step_id").Int()),
		UnitID:        api.UnitID(row.Get("unit_id").String()),
		UnitName:      row.Get("unit_name").String(),
		Strategy:      api.ParseStrategy(row.Get("strategy").String()),
		Selector:      row.Get("selector").String(),
		Scope:         scope,
		Compensatable: row.Get("compensatable").Bool(),
	}
	if cfg := row.Get("config"); cfg.Exists() {
		r.Config = json.RawMessage(cfg.Raw)
	}

	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
