// Package compiler turns a domain.AnalyticsRequest into a single
// parameterized SELECT over the sales schema.
//
// Compilation runs in a fixed phase order (selection, time range, filters,
// group by, order by, limit); each phase may rely on what the previous ones
// produced. Unknown fields and filters whose value cannot be used are dropped
// and reported in CompiledQuery.Ignored instead of failing the request.
package compiler

import (
	"log/slog"

	"datafood/internal/domain"
	"datafood/internal/schema"
)

// Compiler is stateless and safe for concurrent use.
type Compiler struct {
	logger *slog.Logger
}

// New creates a Compiler. A nil logger discards diagnostics.
func New(logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Compiler{logger: logger}
}

// Compile builds the query for req. The only error it returns is a
// *domain.ValidationError for an order_by field that can be neither resolved
// in the catalog nor matched to a selection label.
func (c *Compiler) Compile(req domain.AnalyticsRequest) (*CompiledQuery, error) {
	b := &build{req: req, q: &CompiledQuery{}, joins: newJoinSet()}

	b.selectPhase()
	b.timeRangePhase()
	b.filterPhase()
	b.groupByPhase()
	if err := b.orderByPhase(); err != nil {
		return nil, err
	}
	b.limitPhase()

	b.q.Joins = b.joins.steps
	for _, ig := range b.q.Ignored {
		c.logger.Debug("ignored request fragment",
			"kind", ig.Kind, "index", ig.Index, "field", ig.Field, "reason", ig.Reason)
	}
	return b.q, nil
}

// build carries the state of one compilation.
type build struct {
	req   domain.AnalyticsRequest
	q     *CompiledQuery
	joins *joinSet
}

func (b *build) ignore(kind FragmentKind, index int, field, reason string) {
	b.q.Ignored = append(b.q.Ignored, Ignored{Kind: kind, Index: index, Field: field, Reason: reason})
}

// selectPhase projects dimensions in request order, then metrics.
func (b *build) selectPhase() {
	for i, dim := range b.req.Dimensions {
		entry, ok := schema.ResolveName(string(dim))
		if !ok {
			b.ignore(FragmentDimension, i, string(dim), "unknown field")
			continue
		}
		b.q.Selections = append(b.q.Selections, Selection{Label: string(dim), Expr: entry.Projection})
		b.joins.ensure(entry.Projection.Table())
	}

	for i, m := range b.req.Metrics {
		entry, ok := schema.ResolveName(m.Field)
		if !ok {
			b.ignore(FragmentMetric, i, m.Field, "unknown field")
			continue
		}
		if !m.Function.Valid() {
			b.ignore(FragmentMetric, i, m.Field, "unsupported function "+string(m.Function))
			continue
		}
		if b.hasLabel(m.Label()) {
			b.ignore(FragmentMetric, i, m.Field, "duplicate label "+m.Label())
			continue
		}
		b.q.Selections = append(b.q.Selections, Selection{
			Label:     m.Label(),
			Expr:      entry.Value,
			Aggregate: m.Function,
		})
		b.joins.ensure(entry.Table())
	}
}

// timeRangePhase binds both bounds in UTC, the zone sales.created_at is
// stored in.
func (b *build) timeRangePhase() {
	tr := b.req.TimeRange
	if tr == nil {
		return
	}
	b.q.Predicates = append(b.q.Predicates, Predicate{
		Expr: schema.ColumnExpr(schema.FactTable, "created_at"),
		Op:   OpBetween,
		Args: []any{tr.Start.UTC(), tr.End.UTC()},
	})
}

func (b *build) filterPhase() {
	for i, f := range b.req.Filters {
		entry, ok := schema.ResolveName(f.Field)
		if !ok {
			b.ignore(FragmentFilter, i, f.Field, "unknown field")
			continue
		}
		value, err := coerceFilterValue(entry, f.Operator, f.Value)
		if err != nil {
			b.ignore(FragmentFilter, i, f.Field, err.Error())
			continue
		}
		pred, err := newPredicate(entry.Value, f.Operator, value)
		if err != nil {
			b.ignore(FragmentFilter, i, f.Field, err.Error())
			continue
		}
		b.q.Predicates = append(b.q.Predicates, pred)
		b.joins.ensure(entry.Table())
	}
}

// groupByPhase repeats the dimension resolution of selectPhase so GROUP BY
// lists exactly the projected dimensions in the same order.
func (b *build) groupByPhase() {
	for _, dim := range b.req.Dimensions {
		if entry, ok := schema.ResolveName(string(dim)); ok {
			b.q.GroupBy = append(b.q.GroupBy, entry.Projection)
		}
	}
}

// orderByPhase resolves the sort key against the catalog first and falls
// back to a selection label. It never adds joins.
func (b *build) orderByPhase() error {
	ob := b.req.OrderBy
	if ob == nil {
		return nil
	}
	dir := domain.SortDesc
	if ob.Direction == domain.SortAsc {
		dir = domain.SortAsc
	}

	if entry, ok := schema.ResolveName(ob.Field); ok {
		expr := entry.Value
		if b.hasDimension(ob.Field) {
			expr = entry.Projection
		}
		if !b.joins.has(expr.Table()) {
			return domain.ErrValidation("order_by field %q needs table %s, which no dimension, metric or filter brings into the query", ob.Field, expr.Table())
		}
		b.q.OrderBy = &Ordering{Expr: &expr, Direction: dir}
		return nil
	}

	if !b.hasLabel(ob.Field) {
		return domain.ErrValidation("order_by field %q is neither a known field nor a selected label", ob.Field)
	}
	b.q.OrderBy = &Ordering{Alias: ob.Field, Direction: dir}
	return nil
}

func (b *build) limitPhase() {
	if b.req.Limit != nil && *b.req.Limit > 0 {
		n := *b.req.Limit
		b.q.Limit = &n
	}
}

func (b *build) hasDimension(name string) bool {
	for _, s := range b.q.Selections {
		if !s.IsAggregate() && s.Label == name {
			return true
		}
	}
	return false
}

func (b *build) hasLabel(label string) bool {
	for _, s := range b.q.Selections {
		if s.Label == label {
			return true
		}
	}
	return false
}
