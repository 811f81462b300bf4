package analytics

import (
	"datafood/internal/compiler"
	"datafood/internal/domain"
)

// Plan is a compiled and rendered analytics request.
type Plan struct {
	Dialect compiler.DialectType
	SQL     string
	Args    []any
	Columns []string
	Ignored []compiler.Ignored
}

// Result wraps execution output and the plan that produced it.
type Result struct {
	Plan   Plan
	Result *domain.QueryResult
}
