package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hexaflow/engine/pkg/api"
)

// ErrUnknownOperator is returned when a value-match condition names an
// operator outside the supported set
var ErrUnknownOperator = fmt.Errorf("unknown comparison operator")

func handleFieldFilled(_ context.Context, req *Request) *api.Outcome {
	cfg := &api.FieldFilledConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}

	val, ok := Lookup(req.Context, cfg.Field)
	return api.NewOutcome().WithBranch(ok && filled(val))
}

// filled reports whether a resolved value counts as present. Empty strings,
// empty collections, and explicit nulls do not.
func filled(val any) bool {
	switch v := val.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}

func handleValueMatch(_ context.Context, req *Request) *api.Outcome {
	cfg := &api.ValueMatchConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}

	op := cfg.Operator
	if op == "" {
		op = "eq"
	}
	matched, err := compare(cfg.Left, op, cfg.Right)
	if err != nil {
		return api.Failed(err)
	}
	return api.NewOutcome().WithBranch(matched)
}

// compare applies an operator to two resolved values. When both sides parse
// as numbers the comparison is numeric, otherwise lexicographic.
func compare(left, op, right string) (bool, error) {
	cmp := compareStrings(left, right)
	switch op {
	case "eq", "==":
		return cmp == 0, nil
	case "ne", "neq", "!=":
		return cmp != 0, nil
	case "gt", ">":
		return cmp > 0, nil
	case "gte", ">=":
		return cmp >= 0, nil
	case "lt", "<":
		return cmp < 0, nil
	case "lte", "<=":
		return cmp <= 0, nil
	case "contains":
		return strings.Contains(left, right), nil
	case "starts-with":
		return strings.HasPrefix(left, right), nil
	case "ends-with":
		return strings.HasSuffix(left, right), nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownOperator, op)
	}
}

func compareStrings(left, right string) int {
	lf, lerr := strconv.ParseFloat(strings.TrimSpace(left), 64)
	rf, rerr := strconv.ParseFloat(strings.TrimSpace(right), 64)
	if lerr == nil && rerr == nil {
		switch {
		case lf < rf:
			return -1
		case lf > rf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(left, right)
}

// handleSwitch routes on the resolved value as a case label. A value absent
// from the declared cases, or an empty value, routes to the default
// connector.
func handleSwitch(_ context.Context, req *Request) *api.Outcome {
	cfg := &api.SwitchConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}

	value := cfg.Value
	if value == "" {
		return api.NewOutcome().WithCase(api.LabelDefault)
	}
	if len(cfg.Cases) > 0 && !containsFold(cfg.Cases, value) {
		return api.NewOutcome().WithCase(api.LabelDefault)
	}
	return api.NewOutcome().WithCase(api.Label(value))
}

func containsFold(list []string, value string) bool {
	for _, item := range list {
		if strings.EqualFold(item, value) {
			return true
		}
	}
	return false
}

func handleExpression(_ context.Context, req *Request) *api.Outcome {
	cfg := &api.ExpressionConfig{}
	if err := req.decode(cfg); err != nil {
		return api.Failed(err)
	}

	res, err := req.Env.Expr.Eval(cfg.Expression, req.Context)
	if err != nil {
		return api.Failed(err)
	}
	return api.NewOutcome().WithBranch(res)
}
