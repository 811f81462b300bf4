package repository

import (
	"context"
	"database/sql"
	"math/big"
	"strings"
	"time"

	"github.com/duckdb/duckdb-go/v2"
	"github.com/shopspring/decimal"

	"datafood/internal/domain"
)

// AnalyticsRepo implements domain.AnalyticsExecutor.
type AnalyticsRepo struct {
	db *sql.DB
}

func NewAnalyticsRepo(db *sql.DB) *AnalyticsRepo {
	return &AnalyticsRepo{db: db}
}

// Query runs a rendered statement and returns its rows keyed by column
// label. Values are normalized so every engine yields the same JSON shapes:
// exact numerics become int64 or float64, DATE columns become YYYY-MM-DD
// strings and timestamps are UTC.
func (r *AnalyticsRepo) Query(ctx context.Context, sqlQuery string, args []any) (*domain.QueryResult, error) {
	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, mapDBError("execute analytics query", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, mapDBError("read result columns", err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, mapDBError("read result column types", err)
	}
	typeNames := make([]string, len(colTypes))
	for i, ct := range colTypes {
		typeNames[i] = strings.ToUpper(ct.DatabaseTypeName())
	}

	result := &domain.QueryResult{Columns: cols, Rows: []map[string]any{}}
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, mapDBError("scan analytics row", err)
		}
		row := make(map[string]any, len(cols))
		for i, col := range cols {
			row[col] = normalizeValue(values[i], typeNames[i])
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, mapDBError("iterate analytics rows", err)
	}
	return result, nil
}

func normalizeValue(v any, typeName string) any {
	switch val := v.(type) {
	case nil:
		return nil
	case []byte:
		if isExactNumeric(typeName) {
			if d, err := decimal.NewFromString(string(val)); err == nil {
				return decimalValue(d)
			}
		}
		return string(val)
	case duckdb.Decimal:
		return decimalValue(decimal.NewFromBigInt(val.Value, -int32(val.Scale)))
	case *big.Int:
		return decimalValue(decimal.NewFromBigInt(val, 0))
	case time.Time:
		if typeName == "DATE" {
			return val.Format(time.DateOnly)
		}
		return val.UTC()
	}
	return v
}

func isExactNumeric(typeName string) bool {
	switch typeName {
	case "NUMERIC", "DECIMAL", "NEWDECIMAL":
		return true
	}
	return false
}

// decimalValue collapses whole numbers that fit in int64 to int64.
func decimalValue(d decimal.Decimal) any {
	if d.IsInteger() {
		if n := d.BigInt(); n.IsInt64() {
			return n.Int64()
		}
	}
	return d.InexactFloat64()
}
