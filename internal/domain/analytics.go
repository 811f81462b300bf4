package domain

import "time"

// MetricFunction is the aggregation applied to a metric field.
type MetricFunction string

const (
	MetricSum MetricFunction = "sum"
	// MetricCount counts DISTINCT values of the resolved field, not rows.
	// Joins to line-item tables would otherwise inflate the count, so a
	// "number of sales" metric must be expressed as count over sale_id.
	MetricCount MetricFunction = "count"
	MetricAvg   MetricFunction = "avg"
)

// Valid reports whether f is a supported aggregation.
func (f MetricFunction) Valid() bool {
	switch f {
	case MetricSum, MetricCount, MetricAvg:
		return true
	}
	return false
}

// Dimension is a non-aggregated field used for grouping.
type Dimension string

const (
	DimensionProductName Dimension = "product_name"
	DimensionChannelName Dimension = "channel_name"
	DimensionStoreName   Dimension = "store_name"
	DimensionPaymentType Dimension = "payment_type"
	DimensionSaleStatus  Dimension = "sale_status"
	DimensionSaleDate    Dimension = "sale_date"
	DimensionDayOfWeek   Dimension = "day_of_week"
	DimensionHourOfDay   Dimension = "hour_of_day"
)

// Dimensions lists every accepted dimension in declaration order.
var Dimensions = []Dimension{
	DimensionProductName,
	DimensionChannelName,
	DimensionStoreName,
	DimensionPaymentType,
	DimensionSaleStatus,
	DimensionSaleDate,
	DimensionDayOfWeek,
	DimensionHourOfDay,
}

// Valid reports whether d is one of the accepted dimensions.
func (d Dimension) Valid() bool {
	for _, known := range Dimensions {
		if d == known {
			return true
		}
	}
	return false
}

// FilterOperator is the comparison applied by a filter.
type FilterOperator string

const (
	OpEquals      FilterOperator = "equals"
	OpNotEquals   FilterOperator = "not_equals"
	OpGreaterThan FilterOperator = "greater_than"
	OpLessThan    FilterOperator = "less_than"
	OpIn          FilterOperator = "in"
)

// Valid reports whether op is a supported filter operator.
func (op FilterOperator) Valid() bool {
	switch op {
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpIn:
		return true
	}
	return false
}

// SortDirection is the ORDER BY direction.
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Valid reports whether d is asc or desc.
func (d SortDirection) Valid() bool {
	return d == SortAsc || d == SortDesc
}

// Metric is an aggregated field. Alias defaults to "{function}_{field}".
type Metric struct {
	Field    string
	Function MetricFunction
	Alias    string
}

// Label returns the result column name for the metric.
func (m Metric) Label() string {
	if m.Alias != "" {
		return m.Alias
	}
	return string(m.Function) + "_" + m.Field
}

// Filter is one conjunct of the WHERE clause. Value may be a scalar, a
// slice, or (for OpIn) a comma-delimited string.
type Filter struct {
	Field    string
	Operator FilterOperator
	Value    any
}

// TimeRange bounds sales.created_at, inclusive at both ends.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// OrderBy sorts by a catalog field or by a result label.
type OrderBy struct {
	Field     string
	Direction SortDirection
}

// AnalyticsRequest is a declarative analytics question.
type AnalyticsRequest struct {
	Metrics    []Metric
	Dimensions []Dimension
	Filters    []Filter
	TimeRange  *TimeRange
	OrderBy    *OrderBy
	Limit      *int
}

// Validate checks enum membership and the time window. Unknown field names
// are not rejected here: the compiler drops them.
func (r *AnalyticsRequest) Validate() error {
	for i, m := range r.Metrics {
		if m.Field == "" {
			return ErrValidation("metrics[%d].field is required", i)
		}
		if !m.Function.Valid() {
			return ErrValidation("metrics[%d].function %q must be one of sum, count, avg", i, m.Function)
		}
	}
	for i, d := range r.Dimensions {
		if !d.Valid() {
			return ErrValidation("dimensions[%d] %q is not a supported dimension", i, d)
		}
	}
	for i, f := range r.Filters {
		if f.Field == "" {
			return ErrValidation("filters[%d].field is required", i)
		}
		if !f.Operator.Valid() {
			return ErrValidation("filters[%d].operator %q is not supported", i, f.Operator)
		}
	}
	if r.TimeRange != nil && r.TimeRange.End.Before(r.TimeRange.Start) {
		return ErrValidation("time_range.end_date must not be before time_range.start_date")
	}
	if r.OrderBy != nil {
		if r.OrderBy.Field == "" {
			return ErrValidation("order_by.field is required")
		}
		if !r.OrderBy.Direction.Valid() {
			return ErrValidation("order_by.direction %q must be asc or desc", r.OrderBy.Direction)
		}
	}
	return nil
}

// QueryResult holds rows keyed by result label, in result column order.
type QueryResult struct {
	Columns []string
	Rows    []map[string]any
}
