package selector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/corpact/ruleflow/pkg/api"
)

type comparison struct {
	field   string
	op      string
	literal string
	quoted  bool
}

var (
	ErrUnsupportedOperator = errors.New("unsupported selector operator")
	ErrMalformedSelector   = errors.New("malformed selector expression")
)

// operators in prefix-collision order: two-character forms first
var operators = []string{"==", "!=", ">=", "<=", ">", "<"}

func evalComparison(expr string, data map[string]any) (bool, error) {
	cmp, err := parseComparison(expr)
	if err != nil {
		return false, err
	}

	left, ok := data[cmp.field]
	if !ok {
		return false, nil
	}

	if cmp.quoted {
		return compareStrings(api.CoerceString(left), cmp.op, cmp.literal)
	}

	rhs, ok := parseNumber(cmp.literal)
	if !ok {
		// bare word literal, compare textually
		return compareStrings(api.CoerceString(left), cmp.op, cmp.literal)
	}
	return compareNumbers(api.CoerceAmount(left), cmp.op, rhs)
}

func parseComparison(expr string) (*comparison, error) {
	field, rest := scanIdent(expr)
	if field == "" {
		return nil, fmt.Errorf("%w: %q", ErrMalformedSelector, expr)
	}

	rest = strings.TrimSpace(rest)
	if len(rest) >= 2 && strings.EqualFold(rest[:2], "IN") {
		return nil, fmt.Errorf("%w: IN (...)", ErrUnsupportedOperator)
	}

	op := ""
	for _, cand := range operators {
		if strings.HasPrefix(rest, cand) {
			op = cand
			break
		}
	}
	if op == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperator, rest)
	}

	lit := strings.TrimSpace(rest[len(op):])
	if lit == "" {
		return nil, fmt.Errorf("%w: missing literal", ErrMalformedSelector)
	}

	if quoted, ok := unquote(lit); ok {
		return &comparison{
			field: field, op: op, literal: quoted, quoted: true,
		}, nil
	}
	return &comparison{field: field, op: op, literal: lit}, nil
}

func scanIdent(s string) (string, string) {
	s = strings.TrimSpace(s)
	for i, c := range s {
		if c == '_' || c == '.' ||
			(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') {
			continue
		}
		return s[:i], s[i:]
	}
	return s, ""
}

func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	first, last := s[0], s[len(s)-1]
	if (first == '\'' && last == '\'') || (first == '"' && last == '"') {
		return s[1 : len(s)-1], true
	}
	return "", false
}

func parseNumber(s string) (float64, bool) {
	n, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	return n, err == nil
}

func compareStrings(left, op, right string) (bool, error) {
	switch op {
	case "==":
		return left == right, nil
	case "!=":
		return left != right, nil
	case ">":
		return left > right, nil
	case ">=":
		return left >= right, nil
	case "<":
		return left < right, nil
	case "<=":
		return left <= right, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnsupportedOperator, op)
}

func compareNumbers(left float64, op string, right float64) (bool, error) {
	switch op {
	case "==":
		return left == right, nil
	case "!=":
		return left != right, nil
	case ">":
		return left > right, nil
	case ">=":
		return left >= right, nil
	case "<":
		return left < right, nil
	case "<=":
		return left <= right, nil
	}
	return false, fmt.Errorf("%w: %q", ErrUnsupportedOperator, op)
}
