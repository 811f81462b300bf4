package compiler

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"datafood/internal/domain"
	"datafood/internal/schema"
)

func intPtr(n int) *int { return &n }

func compile(t *testing.T, req domain.AnalyticsRequest) *CompiledQuery {
	t.Helper()
	q, err := New(nil).Compile(req)
	require.NoError(t, err)
	return q
}

func joinedTables(q *CompiledQuery) []schema.Table {
	out := make([]schema.Table, len(q.Joins))
	for i, j := range q.Joins {
		out[i] = j.Table
	}
	return out
}

func TestCompile_OneDimensionOneSum(t *testing.T) {
	for _, dim := range domain.Dimensions {
		t.Run(string(dim), func(t *testing.T) {
			q := compile(t, domain.AnalyticsRequest{
				Dimensions: []domain.Dimension{dim},
				Metrics:    []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
			})

			require.Len(t, q.GroupBy, 1)
			require.Len(t, q.Selections, 2)
			aggregates := 0
			for _, s := range q.Selections {
				if s.IsAggregate() {
					aggregates++
				}
			}
			assert.Equal(t, 1, aggregates)
			assert.Equal(t, string(dim), q.Selections[0].Label)
			assert.Equal(t, q.Selections[0].Expr, q.GroupBy[0])
			assert.Equal(t, "sum_total_amount", q.Selections[1].Label)
		})
	}
}

func TestCompile_DimensionsProjectNames(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{domain.DimensionStoreName, domain.DimensionProductName},
	})

	require.Len(t, q.Selections, 2)
	assert.Equal(t, schema.ColumnExpr(schema.Stores, "name"), q.Selections[0].Expr)
	assert.Equal(t, schema.ColumnExpr(schema.Products, "name"), q.Selections[1].Expr)
	assert.Equal(t, []schema.Expr{
		schema.ColumnExpr(schema.Stores, "name"),
		schema.ColumnExpr(schema.Products, "name"),
	}, q.GroupBy)
}

func TestCompile_CountIsAlwaysDistinct(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Metrics: []domain.Metric{
			{Field: "sale_id", Function: domain.MetricCount},
			{Field: "total_amount", Function: domain.MetricCount, Alias: "amounts"},
		},
	})

	require.Len(t, q.Selections, 2)
	assert.Equal(t, domain.MetricCount, q.Selections[0].Aggregate)
	assert.Equal(t, "count_sale_id", q.Selections[0].Label)

	stmt, err := Render(q, PostgresDialect)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `COUNT(DISTINCT sales.id) AS "count_sale_id"`)
	assert.Contains(t, stmt.SQL, `COUNT(DISTINCT sales.total_amount) AS "amounts"`)
	assert.NotContains(t, stmt.SQL, "COUNT(*)")
	assert.Empty(t, q.GroupBy)
}

func TestCompile_BridgeTablesJoinedOnce(t *testing.T) {
	orders := [][]domain.Dimension{
		{domain.DimensionProductName, domain.DimensionPaymentType},
		{domain.DimensionPaymentType, domain.DimensionProductName},
	}
	for _, dims := range orders {
		q := compile(t, domain.AnalyticsRequest{
			Dimensions: dims,
			Metrics: []domain.Metric{
				{Field: "product_name", Function: domain.MetricCount},
				{Field: "payment_type", Function: domain.MetricCount},
			},
			Filters: []domain.Filter{
				{Field: "product_name", Operator: domain.OpIn, Value: "1,2"},
				{Field: "payment_type", Operator: domain.OpEquals, Value: "PIX"},
			},
		})

		tables := joinedTables(q)
		require.Len(t, tables, 4)
		assert.ElementsMatch(t, []schema.Table{schema.ProductSales, schema.Products, schema.Payments, schema.PaymentTypes}, tables)

		// Bridges precede the tables they lead to.
		idx := map[schema.Table]int{}
		for i, tbl := range tables {
			idx[tbl] = i
		}
		assert.Less(t, idx[schema.ProductSales], idx[schema.Products])
		assert.Less(t, idx[schema.Payments], idx[schema.PaymentTypes])
	}
}

func TestCompile_JoinOrderFollowsFirstReference(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{domain.DimensionChannelName},
		Metrics:    []domain.Metric{{Field: "sale_id", Function: domain.MetricCount}},
		Filters: []domain.Filter{
			{Field: "store_name", Operator: domain.OpEquals, Value: "3"},
			{Field: "product_name", Operator: domain.OpEquals, Value: 7},
		},
	})

	assert.Equal(t, []schema.Table{schema.Channels, schema.Stores, schema.ProductSales, schema.Products}, joinedTables(q))
	assert.Equal(t, []schema.Table{schema.Sales, schema.Channels, schema.Stores, schema.ProductSales, schema.Products}, q.Tables())
}

func TestCompile_SameBridgeFromMetricsNeverDoubleJoins(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{domain.DimensionProductName},
		Metrics: []domain.Metric{
			{Field: "product_name", Function: domain.MetricCount, Alias: "products"},
			{Field: "product_name", Function: domain.MetricCount, Alias: "products_again"},
		},
	})

	assert.Equal(t, []schema.Table{schema.ProductSales, schema.Products}, joinedTables(q))
}

func TestCompile_FactOnlyFieldsNeedNoJoin(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{domain.DimensionSaleStatus, domain.DimensionSaleDate, domain.DimensionDayOfWeek, domain.DimensionHourOfDay},
		Metrics:    []domain.Metric{{Field: "delivery_fee", Function: domain.MetricAvg}},
		Filters:    []domain.Filter{{Field: "sale_status", Operator: domain.OpEquals, Value: "COMPLETED"}},
	})

	assert.Empty(t, q.Joins)
	assert.Len(t, q.GroupBy, 4)
}

func TestCompile_UnknownFieldsAreDroppedAndReported(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{"bogus_dimension", domain.DimensionSaleStatus},
		Metrics: []domain.Metric{
			{Field: "bogus_metric", Function: domain.MetricSum},
			{Field: "total_amount", Function: "median"},
			{Field: "total_amount", Function: domain.MetricSum},
		},
		Filters: []domain.Filter{
			{Field: "bogus_field", Operator: domain.OpEquals, Value: "x"},
		},
	})

	assert.Equal(t, []string{"sale_status", "sum_total_amount"}, q.Labels())
	assert.Empty(t, q.Predicates)
	assert.Empty(t, q.Joins)
	assert.Equal(t, []schema.Expr{schema.ColumnExpr(schema.Sales, "sale_status_desc")}, q.GroupBy)

	require.Len(t, q.Ignored, 4)
	assert.Equal(t, Ignored{Kind: FragmentDimension, Index: 0, Field: "bogus_dimension", Reason: "unknown field"}, q.Ignored[0])
	assert.Equal(t, Ignored{Kind: FragmentMetric, Index: 0, Field: "bogus_metric", Reason: "unknown field"}, q.Ignored[1])
	assert.Equal(t, FragmentMetric, q.Ignored[2].Kind)
	assert.Equal(t, 1, q.Ignored[2].Index)
	assert.Equal(t, Ignored{Kind: FragmentFilter, Index: 0, Field: "bogus_field", Reason: "unknown field"}, q.Ignored[3])
}

func TestCompile_UnknownFilterDoesNotAffectOthers(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
		Filters: []domain.Filter{
			{Field: "bogus_field", Operator: domain.OpEquals, Value: "stores"},
			{Field: "sale_status", Operator: domain.OpEquals, Value: "COMPLETED"},
		},
	})

	require.Len(t, q.Predicates, 1)
	assert.Equal(t, schema.ColumnExpr(schema.Sales, "sale_status_desc"), q.Predicates[0].Expr)
	assert.Empty(t, q.Joins)
}

func TestCompile_HourOfDayInListBecomesIntegers(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "sale_id", Function: domain.MetricCount}},
		Filters: []domain.Filter{{Field: "hour_of_day", Operator: domain.OpIn, Value: "10,11,12"}},
	})

	require.Len(t, q.Predicates, 1)
	p := q.Predicates[0]
	assert.Equal(t, OpIn, p.Op)
	assert.Equal(t, []any{int64(10), int64(11), int64(12)}, p.Args)

	stmt, err := Render(q, PostgresDialect)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "EXTRACT(HOUR FROM sales.created_at) IN ($1,$2,$3)")
	assert.Equal(t, []any{int64(10), int64(11), int64(12)}, stmt.Args)
	assert.NotContains(t, stmt.SQL, "'10'")
}

func TestCompile_FilterCoercionFailuresDropOnlyThatFilter(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
		Filters: []domain.Filter{
			{Field: "store_name", Operator: domain.OpEquals, Value: "Loja Centro"},
			{Field: "hour_of_day", Operator: domain.OpIn, Value: "10,eleven"},
			{Field: "channel_name", Operator: domain.OpIn, Value: 42},
			{Field: "channel_name", Operator: domain.OpEquals, Value: []any{"a", "b"}},
			{Field: "channel_name", Operator: domain.OpIn, Value: " , ,"},
			{Field: "sale_status", Operator: domain.OpEquals, Value: nil},
			{Field: "channel_name", Operator: domain.OpEquals, Value: "iFood"},
		},
	})

	require.Len(t, q.Predicates, 1)
	assert.Equal(t, []any{"iFood"}, q.Predicates[0].Args)
	assert.Equal(t, []schema.Table{schema.Channels}, joinedTables(q))

	require.Len(t, q.Ignored, 6)
	for i, ig := range q.Ignored {
		assert.Equal(t, FragmentFilter, ig.Kind)
		assert.Equal(t, i, ig.Index)
		assert.NotEmpty(t, ig.Reason)
	}
}

func TestCompile_DroppedFilterDoesNotJoin(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
		Filters: []domain.Filter{{Field: "product_name", Operator: domain.OpEquals, Value: "pizza"}},
	})

	assert.Empty(t, q.Predicates)
	assert.Empty(t, q.Joins)
}

func TestCompile_NumericFilterCoercion(t *testing.T) {
	tests := []struct {
		name  string
		op    domain.FilterOperator
		value any
		want  []any
	}{
		{name: "string", op: domain.OpEquals, value: "12", want: []any{int64(12)}},
		{name: "json number", op: domain.OpGreaterThan, value: float64(12), want: []any{int64(12)}},
		{name: "padded string", op: domain.OpLessThan, value: " 08 ", want: []any{int64(8)}},
		{name: "in slice of numbers", op: domain.OpIn, value: []any{float64(1), "2"}, want: []any{int64(1), int64(2)}},
		{name: "in typed slice", op: domain.OpIn, value: []int{3, 4}, want: []any{int64(3), int64(4)}},
		{name: "in string with blanks", op: domain.OpIn, value: "5, ,6,", want: []any{int64(5), int64(6)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := compile(t, domain.AnalyticsRequest{
				Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
				Filters: []domain.Filter{{Field: "store_name", Operator: tt.op, Value: tt.value}},
			})
			require.Len(t, q.Predicates, 1)
			assert.Equal(t, tt.want, q.Predicates[0].Args)
			assert.Equal(t, schema.ColumnExpr(schema.Stores, "id"), q.Predicates[0].Expr)
		})
	}
}

func TestCompile_NonNumericInKeepsStrings(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
		Filters: []domain.Filter{{Field: "channel_name", Operator: domain.OpIn, Value: "iFood, Rappi"}},
	})

	require.Len(t, q.Predicates, 1)
	assert.Equal(t, []any{"iFood", "Rappi"}, q.Predicates[0].Args)
}

func TestCompile_FilterDoesNotMutateRequest(t *testing.T) {
	values := []any{"1", "2"}
	req := domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
		Filters: []domain.Filter{{Field: "store_name", Operator: domain.OpIn, Value: values}},
	}
	compile(t, req)
	assert.Equal(t, []any{"1", "2"}, values)
}

func TestCompile_TimeRangeIsInclusiveBetween(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	q := compile(t, domain.AnalyticsRequest{
		Metrics:   []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
		TimeRange: &domain.TimeRange{Start: start, End: end},
		Filters:   []domain.Filter{{Field: "sale_status", Operator: domain.OpEquals, Value: "COMPLETED"}},
	})

	require.Len(t, q.Predicates, 2)
	p := q.Predicates[0]
	assert.Equal(t, OpBetween, p.Op)
	assert.Equal(t, schema.ColumnExpr(schema.Sales, "created_at"), p.Expr)
	assert.Equal(t, []any{start, end}, p.Args)
	assert.Empty(t, q.Joins)

	stmt, err := Render(q, PostgresDialect)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "WHERE sales.created_at BETWEEN $1 AND $2 AND sales.sale_status_desc = $3")
	assert.Equal(t, []any{start, end, "COMPLETED"}, stmt.Args)
}

func TestCompile_TimeRangeBoundsAreUTC(t *testing.T) {
	brt := time.FixedZone("BRT", -3*60*60)
	instant := time.Date(2024, 5, 5, 23, 30, 0, 0, time.UTC)

	q := compile(t, domain.AnalyticsRequest{
		Metrics:   []domain.Metric{{Field: "sale_id", Function: domain.MetricCount}},
		TimeRange: &domain.TimeRange{Start: instant.In(brt), End: instant.Add(time.Hour).In(brt)},
	})

	require.Len(t, q.Predicates, 1)
	args := q.Predicates[0].Args
	require.Len(t, args, 2)
	for _, a := range args {
		ts, ok := a.(time.Time)
		require.True(t, ok)
		assert.Equal(t, time.UTC, ts.Location())
	}
	assert.Equal(t, instant, args[0])
	assert.Equal(t, instant.Add(time.Hour), args[1])
}

func TestCompile_DuplicateMetricLabelIsDropped(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{domain.DimensionStoreName},
		Metrics: []domain.Metric{
			{Field: "total_amount", Function: domain.MetricSum, Alias: "revenue"},
			{Field: "delivery_fee", Function: domain.MetricSum, Alias: "revenue"},
			{Field: "sale_id", Function: domain.MetricCount, Alias: "store_name"},
			{Field: "total_amount", Function: domain.MetricSum},
			{Field: "total_amount", Function: domain.MetricSum},
		},
	})

	assert.Equal(t, []string{"store_name", "revenue", "sum_total_amount"}, q.Labels())
	require.Len(t, q.Ignored, 3)
	assert.Equal(t, Ignored{Kind: FragmentMetric, Index: 1, Field: "delivery_fee", Reason: "duplicate label revenue"}, q.Ignored[0])
	assert.Equal(t, Ignored{Kind: FragmentMetric, Index: 2, Field: "sale_id", Reason: "duplicate label store_name"}, q.Ignored[1])
	assert.Equal(t, Ignored{Kind: FragmentMetric, Index: 4, Field: "total_amount", Reason: "duplicate label sum_total_amount"}, q.Ignored[2])
}

func TestCompile_OrderByMetricAlias(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{domain.DimensionChannelName},
		Metrics:    []domain.Metric{{Field: "total_amount", Function: domain.MetricSum, Alias: "total_sales"}},
		OrderBy:    &domain.OrderBy{Field: "total_sales", Direction: domain.SortDesc},
	})

	require.NotNil(t, q.OrderBy)
	assert.Nil(t, q.OrderBy.Expr)
	assert.Equal(t, "total_sales", q.OrderBy.Alias)
	assert.Equal(t, domain.SortDesc, q.OrderBy.Direction)

	stmt, err := Render(q, PostgresDialect)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `SUM(sales.total_amount) AS "total_sales"`)
	assert.Contains(t, stmt.SQL, `ORDER BY "total_sales" DESC`)
}

func TestCompile_OrderByDefaultMetricLabel(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "sale_id", Function: domain.MetricCount}},
		OrderBy: &domain.OrderBy{Field: "count_sale_id", Direction: domain.SortAsc},
	})
	require.NotNil(t, q.OrderBy)
	assert.Equal(t, "count_sale_id", q.OrderBy.Alias)
	assert.Equal(t, domain.SortAsc, q.OrderBy.Direction)
}

func TestCompile_OrderByCatalogField(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{domain.DimensionStoreName},
		Metrics:    []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
		OrderBy:    &domain.OrderBy{Field: "store_name", Direction: domain.SortAsc},
	})

	require.NotNil(t, q.OrderBy)
	require.NotNil(t, q.OrderBy.Expr)
	assert.Equal(t, schema.ColumnExpr(schema.Stores, "name"), *q.OrderBy.Expr)
	assert.Equal(t, []schema.Table{schema.Stores}, joinedTables(q))
}

func TestCompile_OrderByFactField(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{domain.DimensionHourOfDay},
		Metrics:    []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
		OrderBy:    &domain.OrderBy{Field: "hour_of_day", Direction: domain.SortAsc},
	})

	stmt, err := Render(q, PostgresDialect)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, "ORDER BY EXTRACT(HOUR FROM sales.created_at) ASC")
}

func TestCompile_OrderByDoesNotJoin(t *testing.T) {
	_, err := New(nil).Compile(domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
		OrderBy: &domain.OrderBy{Field: "channel_name", Direction: domain.SortAsc},
	})

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Message, "channel_name")
}

func TestCompile_OrderByUnknownIsValidationError(t *testing.T) {
	_, err := New(nil).Compile(domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
		OrderBy: &domain.OrderBy{Field: "total_sales", Direction: domain.SortDesc},
	})

	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Message, "total_sales")
}

func TestCompile_Limit(t *testing.T) {
	tests := []struct {
		name  string
		limit *int
		want  *int
	}{
		{name: "absent", limit: nil, want: nil},
		{name: "zero", limit: intPtr(0), want: nil},
		{name: "negative", limit: intPtr(-5), want: nil},
		{name: "positive", limit: intPtr(10), want: intPtr(10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := compile(t, domain.AnalyticsRequest{
				Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
				Limit:   tt.limit,
			})
			assert.Equal(t, tt.want, q.Limit)

			stmt, err := Render(q, PostgresDialect)
			require.NoError(t, err)
			if tt.want == nil {
				assert.NotContains(t, stmt.SQL, "LIMIT")
			} else {
				assert.Contains(t, stmt.SQL, " LIMIT 10")
			}
		})
	}
}

func TestCompile_NoDimensionsNoGroupBy(t *testing.T) {
	q := compile(t, domain.AnalyticsRequest{
		Metrics: []domain.Metric{{Field: "total_amount", Function: domain.MetricSum}},
	})
	assert.Empty(t, q.GroupBy)

	stmt, err := Render(q, PostgresDialect)
	require.NoError(t, err)
	assert.Equal(t, `SELECT SUM(sales.total_amount) AS "sum_total_amount" FROM sales`, stmt.SQL)
	assert.Empty(t, stmt.Args)
}

func TestCompile_IsDeterministic(t *testing.T) {
	req := domain.AnalyticsRequest{
		Dimensions: []domain.Dimension{domain.DimensionPaymentType, domain.DimensionStoreName},
		Metrics:    []domain.Metric{{Field: "total_amount", Function: domain.MetricAvg}},
		Filters:    []domain.Filter{{Field: "product_name", Operator: domain.OpIn, Value: "1,2,3"}},
		OrderBy:    &domain.OrderBy{Field: "avg_total_amount", Direction: domain.SortDesc},
		Limit:      intPtr(5),
	}

	first, err := Render(compile(t, req), PostgresDialect)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Render(compile(t, req), PostgresDialect)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
