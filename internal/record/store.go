// Package record provides the tenant-scoped record store consumed by the
// execution engine. The per-tenant dynamic table generator itself is owned
// by the platform; the engine only reads and writes records through the
// Store interface.
package record

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

type (
	// Record is a single row of a tenant table
	Record map[string]any

	// Condition is a single filter clause applied to a field
	Condition struct {
		Field string `json:"field"`
		Op    string `json:"op,omitempty"`
		Value any    `json:"value"`
	}

	// Query filters, orders, and paginates records within a table
	Query struct {
		Conditions []Condition `json:"conditions,omitempty"`
		OrderBy    string      `json:"order_by,omitempty"`
		Descending bool        `json:"descending,omitempty"`
		Limit      int         `json:"limit,omitempty"`
		Offset     int         `json:"offset,omitempty"`
	}

	// Store is the tenant-scoped record store interface
	Store interface {
		Create(
			ctx context.Context, tenantID, table string, values Record,
		) (Record, error)
		Find(
			ctx context.Context, tenantID, table string, q Query,
		) ([]Record, error)
		Update(
			ctx context.Context, tenantID, table string, q Query,
			values Record,
		) ([]Record, error)
		Upsert(
			ctx context.Context, tenantID, table string, q Query,
			values Record,
		) (Record, bool, error)
	}
)

const (
	OpEqual        = "eq"
	OpNotEqual     = "ne"
	OpGreater      = "gt"
	OpGreaterEqual = "gte"
	OpLess         = "lt"
	OpLessEqual    = "lte"
	OpContains     = "contains"
)

const (
	FieldID        = "id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

var (
	ErrTenantEmpty  = errors.New("tenant ID empty")
	ErrTableEmpty   = errors.New("table name empty")
	ErrUnknownOp    = errors.New("unknown condition operator")
)

func validateScope(tenantID, table string) error {
	if tenantID == "" {
		return ErrTenantEmpty
	}
	if table == "" {
		return ErrTableEmpty
	}
	return nil
}

// Matches reports whether the record satisfies every condition in the query
func (q Query) Matches(rec Record) (bool, error) {
	for _, c := range q.Conditions {
		ok, err := c.matches(rec)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func (c Condition) matches(rec Record) (bool, error) {
	val := rec[c.Field]
	op := c.Op
	if op == "" {
		op = OpEqual
	}

	switch op {
	case OpEqual:
		return compareValues(val, c.Value) == 0, nil
	case OpNotEqual:
		return compareValues(val, c.Value) != 0, nil
	case OpGreater:
		return compareValues(val, c.Value) > 0, nil
	case OpGreaterEqual:
		return compareValues(val, c.Value) >= 0, nil
	case OpLess:
		return compareValues(val, c.Value) < 0, nil
	case OpLessEqual:
		return compareValues(val, c.Value) <= 0, nil
	case OpContains:
		return strings.Contains(
			strings.ToLower(stringify(val)),
			strings.ToLower(stringify(c.Value)),
		), nil
	default:
		return false, fmt.Errorf("%w: %s", ErrUnknownOp, op)
	}
}

// compareValues orders two loosely typed values, numerically when both
// parse as numbers, otherwise lexically on their string forms
func compareValues(a, b any) int {
	af, aok := toFloat(a)
	bf, bok := toFloat(b)
	if aok && bok {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(stringify(a), stringify(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case time.Time:
		return s.Format(time.RFC3339)
	default:
		return fmt.Sprintf("%v", s)
	}
}

// Apply filters, orders, and paginates the given records in place of a
// storage-level query. Store implementations that cannot push the query
// down use it after loading a table.
func (q Query) Apply(recs []Record) ([]Record, error) {
	matched := make([]Record, 0, len(recs))
	for _, rec := range recs {
		ok, err := q.Matches(rec)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, rec)
		}
	}

	orderBy := q.OrderBy
	if orderBy == "" {
		orderBy = FieldCreatedAt
	}
	sort.SliceStable(matched, func(i, j int) bool {
		cmp := compareValues(matched[i][orderBy], matched[j][orderBy])
		if q.Descending {
			return cmp > 0
		}
		return cmp < 0
	})

	if q.Offset > 0 {
		if q.Offset >= len(matched) {
			return []Record{}, nil
		}
		matched = matched[q.Offset:]
	}
	if q.Limit > 0 && q.Limit < len(matched) {
		matched = matched[:q.Limit]
	}
	return matched, nil
}

// Clone returns a shallow copy of the record
func (r Record) Clone() Record {
	res := make(Record, len(r))
	for k, v := range r {
		res[k] = v
	}
	return res
}

// ID returns the record's identifier, or empty when unset
func (r Record) ID() string {
	id, _ := r[FieldID].(string)
	return id
}
