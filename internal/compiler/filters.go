package compiler

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/spf13/cast"

	"datafood/internal/domain"
	"datafood/internal/schema"
)

var comparisons = map[domain.FilterOperator]Operator{
	domain.OpEquals:      OpEq,
	domain.OpNotEquals:   OpNe,
	domain.OpGreaterThan: OpGt,
	domain.OpLessThan:    OpLt,
}

// coerceFilterValue normalizes a raw filter value for the field it targets.
// For IN, a comma-delimited string becomes a trimmed list without empty
// items. Numeric fields get every value converted to int64.
func coerceFilterValue(entry schema.Entry, op domain.FilterOperator, value any) (any, error) {
	if value == nil {
		return nil, errors.New("value is required")
	}

	if op == domain.OpIn {
		items, err := inList(value)
		if err != nil {
			return nil, err
		}
		if !entry.Numeric {
			return items, nil
		}
		ints := make([]any, len(items))
		for i, item := range items {
			n, err := toInt(item)
			if err != nil {
				return nil, fmt.Errorf("in-list item %d: %w", i, err)
			}
			ints[i] = n
		}
		return ints, nil
	}

	if entry.Numeric {
		n, err := toInt(value)
		if err != nil {
			return nil, err
		}
		return n, nil
	}
	return value, nil
}

func inList(value any) ([]any, error) {
	switch v := value.(type) {
	case string:
		parts := strings.Split(v, ",")
		items := make([]any, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				items = append(items, p)
			}
		}
		return items, nil
	case []any:
		return append([]any(nil), v...), nil
	}

	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("in needs a list or a comma-separated string, got %T", value)
	}
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return items, nil
}

// toInt converts JSON/YAML scalars to int64. Strings are trimmed and lose
// leading zeros so "08" reads as decimal 8.
func toInt(v any) (int64, error) {
	if v == nil {
		return 0, errors.New("null is not an integer")
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return 0, errors.New("empty string is not an integer")
		}
		v = trimLeadingZeros(s)
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return 0, fmt.Errorf("%v is not an integer", v)
	}
	return n, nil
}

func trimLeadingZeros(s string) string {
	sign := ""
	if s[0] == '-' || s[0] == '+' {
		sign, s = s[:1], s[1:]
	}
	t := strings.TrimLeft(s, "0")
	if t == "" && s != "" {
		t = "0"
	}
	return sign + t
}

// newPredicate applies op to an already coerced value.
func newPredicate(expr schema.Expr, op domain.FilterOperator, value any) (Predicate, error) {
	if cmp, ok := comparisons[op]; ok {
		if !isScalar(value) {
			return Predicate{}, fmt.Errorf("%s needs a single value, got %T", op, value)
		}
		return Predicate{Expr: expr, Op: cmp, Args: []any{value}}, nil
	}

	if op != domain.OpIn {
		return Predicate{}, fmt.Errorf("unsupported operator %q", op)
	}
	items, ok := value.([]any)
	if !ok {
		return Predicate{}, fmt.Errorf("in needs a list, got %T", value)
	}
	if len(items) == 0 {
		return Predicate{}, errors.New("in needs at least one value")
	}
	for i, item := range items {
		if !isScalar(item) {
			return Predicate{}, fmt.Errorf("in-list item %d is not a scalar (%T)", i, item)
		}
	}
	return Predicate{Expr: expr, Op: OpIn, Args: items}, nil
}

func isScalar(v any) bool {
	switch v.(type) {
	case string, bool, time.Time,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return true
	}
	return false
}
