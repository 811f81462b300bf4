package compiler

import (
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"datafood/internal/domain"
	"datafood/internal/schema"
)

// Statement is rendered SQL plus its bound arguments, in placeholder order.
type Statement struct {
	SQL  string
	Args []any
}

// Render spells q for dialect d. Filter and time-range values only ever
// appear in Args.
func Render(q *CompiledQuery, d *Dialect) (Statement, error) {
	if d == nil {
		return Statement{}, errors.New("render: dialect is required")
	}
	if len(q.Selections) == 0 {
		return Statement{}, domain.ErrValidation("request selects no known dimension or metric")
	}

	columns := make([]string, len(q.Selections))
	for i, sel := range q.Selections {
		if strings.Contains(sel.Label, "?") {
			return Statement{}, domain.ErrValidation("label %q must not contain '?'", sel.Label)
		}
		columns[i] = selection(d, sel)
	}

	builder := sq.Select(columns...).From(string(schema.FactTable))
	for _, j := range q.Joins {
		builder = builder.Join(fmt.Sprintf("%s ON %s = %s", j.Table, j.Left, j.Right))
	}
	for _, p := range q.Predicates {
		builder = builder.Where(predicate(d, p))
	}
	if len(q.GroupBy) > 0 {
		groups := make([]string, len(q.GroupBy))
		for i, e := range q.GroupBy {
			groups[i] = d.Expr(e)
		}
		builder = builder.GroupBy(groups...)
	}
	if o := q.OrderBy; o != nil {
		key := d.QuoteIdent(o.Alias)
		if o.Expr != nil {
			key = d.Expr(*o.Expr)
		}
		dir := "DESC"
		if o.Direction == domain.SortAsc {
			dir = "ASC"
		}
		builder = builder.OrderBy(key + " " + dir)
	}
	if q.Limit != nil {
		builder = builder.Limit(uint64(*q.Limit))
	}

	sqlStr, args, err := builder.PlaceholderFormat(d.Placeholders).ToSql()
	if err != nil {
		return Statement{}, fmt.Errorf("render: %w", err)
	}
	return Statement{SQL: sqlStr, Args: args}, nil
}

func selection(d *Dialect, s Selection) string {
	expr := d.Expr(s.Expr)
	switch s.Aggregate {
	case domain.MetricSum:
		expr = "SUM(" + expr + ")"
	case domain.MetricAvg:
		expr = "AVG(" + expr + ")"
	case domain.MetricCount:
		expr = "COUNT(DISTINCT " + expr + ")"
	}
	return expr + " AS " + d.QuoteIdent(s.Label)
}

func predicate(d *Dialect, p Predicate) sq.Sqlizer {
	expr := d.Expr(p.Expr)
	switch p.Op {
	case OpBetween:
		return sq.Expr(expr+" BETWEEN ? AND ?", p.Args[0], p.Args[1])
	case OpIn:
		return sq.Eq{expr: p.Args}
	case OpEq:
		return sq.Eq{expr: p.Args[0]}
	case OpNe:
		return sq.NotEq{expr: p.Args[0]}
	case OpGt:
		return sq.Gt{expr: p.Args[0]}
	case OpLt:
		return sq.Lt{expr: p.Args[0]}
	default:
		return sq.Expr(expr+" "+string(p.Op)+" ?", p.Args[0])
	}
}
