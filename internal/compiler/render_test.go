package compiler

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datafood/internal/domain"
	"datafood/internal/schema"
)

func TestRender_TopProducts(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{domain.DimensionProductName},
		Metrics:    []domain.Metric{{Field: "total_amount", Function: domain.MetricSum, Alias: "total_sales"}},
		OrderBy:    &domain.OrderBy{Field: "total_sales", Direction: domain.SortDesc},
		Limit:      intPtr(10),
	})

	stmt, err := Render(q, PostgresDialect)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT products.name AS "product_name", SUM(sales.total_amount) AS "total_sales"`+
			` FROM sales`+
			` JOIN product_sales ON sales.id = product_sales.sale_id`+
			` JOIN products ON product_sales.product_id = products.id`+
			` GROUP BY products.name`+
			` ORDER BY "total_sales" DESC`+
			` LIMIT 10`,
		stmt.SQL)
	assert.Empty(t, stmt.Args)
}

func TestRender_StoreFilterOnSQLite(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{domain.DimensionHourOfDay},
		Metrics:    []domain.Metric{{Field: "sale_id", Function: domain.MetricCount, Alias: "orders"}},
		Filters: []domain.Filter{
			{Field: "store_name", Operator: domain.OpIn, Value: "1,2"},
			{Field: "sale_status", Operator: domain.OpNotEquals, Value: "CANCELLED"},
		},
		OrderBy: &domain.OrderBy{Field: "hour_of_day", Direction: domain.SortAsc},
	})

	stmt, err := Render(q, SQLiteDialect)
	require.NoError(t, err)
	hour := "CAST(strftime('%H', sales.created_at) AS INTEGER)"
	assert.Equal(t,
		`SELECT `+hour+` AS "hour_of_day", COUNT(DISTINCT sales.id) AS "orders"`+
			` FROM sales JOIN stores ON sales.store_id = stores.id`+
			` WHERE stores.id IN (?,?) AND sales.sale_status_desc <> ?`+
			` GROUP BY `+hour+
			` ORDER BY `+hour+` ASC`,
		stmt.SQL)
	assert.Equal(t, []any{int64(1), int64(2), "CANCELLED"}, stmt.Args)
}

func TestRender_PlaceholderCountMatchesArgs(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	q := compile(t, domain.AnalyticsRequest{
		Metrics:   []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
		TimeRange: &domain.TimeRange{Start: start, End: end},
		Filters: []domain.Filter{
			{Field: "channel_name", Operator: domain.OpIn, Value: []any{"iFood", "Rappi", "Balcão"}},
			{Field: "total_amount", Operator: domain.OpGreaterThan, Value: 50.5},
			{Field: "day_of_week", Operator: domain.OpLessThan, Value: "6"},
		},
	})

	for _, d := range []*Dialect{SQLiteDialect, MySQLDialect, DuckDBDialect} {
		stmt, err := Render(q, d)
		require.NoError(t, err)
		assert.Equal(t, len(stmt.Args), strings.Count(stmt.SQL, "?"), d.Type)
	}

	stmt, err := Render(q, PostgresDialect)
	require.NoError(t, err)
	assert.NotContains(t, stmt.SQL, "?")
	assert.Contains(t, stmt.SQL, "$7")
	assert.NotContains(t, stmt.SQL, "$8")
	assert.Equal(t, []any{start, end, "iFood", "Rappi", "Balcão", 50.5, int64(6)}, stmt.Args)
}

func TestRender_ValuesNeverInterpolated(t *testing.T) {
	hostile := "x'; DROP TABLE sales; --"
	q := compile(t, domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
		Filters: []domain.Filter{{Field: "sale_status", Operator: domain.OpEquals, Value: hostile}},
	})

	stmt, err := Render(q, SQLiteDialect)
	require.NoError(t, err)
	assert.NotContains(t, stmt.SQL, "DROP TABLE")
	assert.Equal(t, []any{hostile}, stmt.Args)
}

func TestRender_AliasIsQuoted(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum, Alias: `a"b`}},
	})

	stmt, err := Render(q, PostgresDialect)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `AS "a""b"`)

	stmt, err = Render(q, MySQLDialect)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "AS `a\"b`")
}

func TestRender_AliasWithBindMarkerIsRejected(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum, Alias: "why?"}},
	})

	_, err := Render(q, PostgresDialect)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Message, "why?")
}

func TestRender_PostgresNumbersInList(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
		Filters: []domain.Filter{
			{Field: "sale_status", Operator: domain.OpNotEquals, Value: "CANCELLED"},
			{Field: "store_name", Operator: domain.OpIn, Value: "1,2,3"},
			{Field: "total_amount", Operator: domain.OpLessThan, Value: 100},
		},
	})

	stmt, err := Render(q, PostgresDialect)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL,
		"WHERE sales.sale_status_desc <> $1 AND stores.id IN ($2,$3,$4) AND sales.total_amount < $5")
	assert.Equal(t, []any{"CANCELLED", int64(1), int64(2), int64(3)}, stmt.Args[:4])
}

func TestRender_DerivedDimensionsPerDialect(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{domain.DimensionSaleDate, domain.DimensionDayOfWeek},
		Metrics:    []domain.Metric{{Field: "total_amount", Function: domain.MetricAvg}},
	})

	tests := []struct {
		d    *Dialect
		date string
		dow  string
	}{
		{PostgresDialect, "DATE(sales.created_at)", "EXTRACT(ISODOW FROM sales.created_at)"},
		{DuckDBDialect, "CAST(sales.created_at AS DATE)", "EXTRACT(ISODOW FROM sales.created_at)"},
		{MySQLDialect, "DATE(sales.created_at)", "(WEEKDAY(sales.created_at) + 1)"},
		{SQLiteDialect, "date(sales.created_at)", "((CAST(strftime('%w', sales.created_at) AS INTEGER) + 6) % 7 + 1)"},
	}
	for _, tt := range tests {
		t.Run(string(tt.d.Type), func(t *testing.T) {
			stmt, err := Render(q, tt.d)
			require.NoError(t, err)
			assert.Contains(t, stmt.SQL, tt.date+" AS ")
			assert.Contains(t, stmt.SQL, tt.dow+" AS ")
			assert.Contains(t, stmt.SQL, "GROUP BY "+tt.date+", "+tt.dow)
			assert.Contains(t, stmt.SQL, "AVG(sales.total_amount)")
		})
	}
}

func TestRender_NoSelections(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{"nope"},
		Metrics:    []domain.Metric{{Field: "also_nope", Function: domain.MetricSum}},
	})

	_, err := Render(q, PostgresDialect)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
}

func TestRender_NilDialect(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
	})
	_, err := Render(q, nil)
	require.Error(t, err)
}

func TestRender_JoinsFollowCatalogPaths(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{domain.DimensionPaymentType},
		Metrics:    []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
	})

	stmt, err := Render(q, PostgresDialect)
	require.NoError(t, err)
	for _, step := range schema.PathTo(schema.PaymentTypes) {
		assert.Contains(t, stmt.SQL, "JOIN "+string(step.Table)+" ON "+step.Left.String()+" = "+step.Right.String())
	}
	assert.Equal(t, 1, strings.Count(stmt.SQL, "JOIN payments "))
	assert.Equal(t, 1, strings.Count(stmt.SQL, "JOIN payment_types "))
}
