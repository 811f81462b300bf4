package compiler

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"datafood/internal/schema"
)

// DialectType names a SQL target.
type DialectType string

const (
	DialectPostgres DialectType = "postgres"
	DialectSQLite   DialectType = "sqlite"
	DialectMySQL    DialectType = "mysql"
	DialectDuckDB   DialectType = "duckdb"
)

// Dialect holds the syntax differences between SQL targets.
type Dialect struct {
	Type DialectType

	IdentQuoteChar byte

	// Placeholders rewrites the ? bind markers of a built statement.
	Placeholders sq.PlaceholderFormat

	// DateParts maps derived expression kinds to a pattern taking the
	// qualified timestamp column.
	DateParts map[schema.ExprKind]string
}

// PostgresDialect targets PostgreSQL through lib/pq.
var PostgresDialect = &Dialect{
	Type:           DialectPostgres,
	IdentQuoteChar: '"',
	Placeholders:   sq.Dollar,
	DateParts: map[schema.ExprKind]string{
		schema.ExprDate:         "DATE(%s)",
		schema.ExprISODayOfWeek: "EXTRACT(ISODOW FROM %s)",
		schema.ExprHour:         "EXTRACT(HOUR FROM %s)",
	},
}

// DuckDBDialect targets an embedded DuckDB database.
var DuckDBDialect = &Dialect{
	Type:           DialectDuckDB,
	IdentQuoteChar: '"',
	Placeholders:   sq.Question,
	DateParts: map[schema.ExprKind]string{
		schema.ExprDate:         "CAST(%s AS DATE)",
		schema.ExprISODayOfWeek: "EXTRACT(ISODOW FROM %s)",
		schema.ExprHour:         "EXTRACT(HOUR FROM %s)",
	},
}

// MySQLDialect targets MySQL 8. WEEKDAY is 0 for Monday.
var MySQLDialect = &Dialect{
	Type:           DialectMySQL,
	IdentQuoteChar: '`',
	Placeholders:   sq.Question,
	DateParts: map[schema.ExprKind]string{
		schema.ExprDate:         "DATE(%s)",
		schema.ExprISODayOfWeek: "(WEEKDAY(%s) + 1)",
		schema.ExprHour:         "HOUR(%s)",
	},
}

// SQLiteDialect targets SQLite, where %w is 0 for Sunday.
var SQLiteDialect = &Dialect{
	Type:           DialectSQLite,
	IdentQuoteChar: '"',
	Placeholders:   sq.Question,
	DateParts: map[schema.ExprKind]string{
		schema.ExprDate:         "date(%s)",
		schema.ExprISODayOfWeek: "((CAST(strftime('%%w', %s) AS INTEGER) + 6) %% 7 + 1)",
		schema.ExprHour:         "CAST(strftime('%%H', %s) AS INTEGER)",
	},
}

// GetDialect returns the dialect registered for name. Driver names and
// common aliases are accepted.
func GetDialect(name string) (*Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "postgres", "postgresql", "pg":
		return PostgresDialect, nil
	case "sqlite", "sqlite3":
		return SQLiteDialect, nil
	case "mysql":
		return MySQLDialect, nil
	case "duckdb":
		return DuckDBDialect, nil
	}
	return nil, fmt.Errorf("unsupported SQL dialect %q", name)
}

// QuoteIdent quotes s, doubling any embedded quote character.
func (d *Dialect) QuoteIdent(s string) string {
	q := string(d.IdentQuoteChar)
	return q + strings.ReplaceAll(s, q, q+q) + q
}

// Expr spells a catalog expression.
func (d *Dialect) Expr(e schema.Expr) string {
	column := e.Column.String()
	if e.Kind == schema.ExprColumn {
		return column
	}
	pattern, ok := d.DateParts[e.Kind]
	if !ok {
		return column
	}
	return fmt.Sprintf(pattern, column)
}
