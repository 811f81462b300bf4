package compiler

import (
	"datafood/internal/domain"
	"datafood/internal/schema"
)

// Selection is one projected column. Aggregate is empty for dimensions.
type Selection struct {
	Label     string
	Expr      schema.Expr
	Aggregate domain.MetricFunction
}

// IsAggregate reports whether the selection is a metric.
func (s Selection) IsAggregate() bool { return s.Aggregate != "" }

// Operator is a SQL comparison operator.
type Operator string

const (
	OpEq      Operator = "="
	OpNe      Operator = "<>"
	OpGt      Operator = ">"
	OpLt      Operator = "<"
	OpIn      Operator = "IN"
	OpBetween Operator = "BETWEEN"
)

// Predicate is one conjunct of the WHERE clause. Args are bound as
// parameters, never interpolated: one for comparisons, two for BETWEEN, one
// or more for IN.
type Predicate struct {
	Expr schema.Expr
	Op   Operator
	Args []any
}

// Ordering sorts either by a catalog expression or by a selection label.
type Ordering struct {
	Expr      *schema.Expr
	Alias     string
	Direction domain.SortDirection
}

// FragmentKind names the part of a request an Ignored entry came from.
type FragmentKind string

const (
	FragmentDimension FragmentKind = "dimension"
	FragmentMetric    FragmentKind = "metric"
	FragmentFilter    FragmentKind = "filter"
)

// Ignored records a request fragment the compiler dropped.
type Ignored struct {
	Kind   FragmentKind
	Index  int
	Field  string
	Reason string
}

// CompiledQuery is the abstract form of one analytics SELECT. Every table
// referenced by Selections, Predicates and GroupBy is the fact table or
// appears exactly once in Joins, in first-referenced order.
type CompiledQuery struct {
	Selections []Selection
	Joins      []schema.JoinStep
	Predicates []Predicate
	GroupBy    []schema.Expr
	OrderBy    *Ordering
	Limit      *int
	Ignored    []Ignored
}

// Tables returns the fact table followed by every joined table.
func (q *CompiledQuery) Tables() []schema.Table {
	out := make([]schema.Table, 0, len(q.Joins)+1)
	out = append(out, schema.FactTable)
	for _, j := range q.Joins {
		out = append(out, j.Table)
	}
	return out
}

// Labels returns the selection labels in order.
func (q *CompiledQuery) Labels() []string {
	out := make([]string, len(q.Selections))
	for i, s := range q.Selections {
		out[i] = s.Label
	}
	return out
}
