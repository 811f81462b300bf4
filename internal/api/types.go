package api

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"datafood/internal/domain"
)

// AnalyticsQuery is the wire form of an analytics request. The same shape
// is read from JSON bodies and from YAML request files.
type AnalyticsQuery struct {
	Metrics    []Metric   `json:"metrics" yaml:"metrics"`
	Dimensions []string   `json:"dimensions" yaml:"dimensions"`
	Filters    []Filter   `json:"filters,omitempty" yaml:"filters,omitempty"`
	TimeRange  *TimeRange `json:"time_range,omitempty" yaml:"time_range,omitempty"`
	OrderBy    *OrderBy   `json:"order_by,omitempty" yaml:"order_by,omitempty"`
	Limit      *int       `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// Metric is one aggregated field.
type Metric struct {
	Field    string `json:"field" yaml:"field"`
	Function string `json:"function" yaml:"function"`
	Alias    string `json:"alias,omitempty" yaml:"alias,omitempty"`
}

// Filter is one WHERE conjunct. Value is a scalar, a list, or a
// comma-separated string for "in".
type Filter struct {
	Field    string `json:"field" yaml:"field"`
	Operator string `json:"operator" yaml:"operator"`
	Value    any    `json:"value" yaml:"value"`
}

// UnmarshalYAML keeps timestamp-shaped scalars such as an unquoted
// 2024-05-01 as the text written, so they reach the compiler the same way
// a JSON string would.
func (f *Filter) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: filter must be a mapping", node.Line)
	}
	var value *yaml.Node
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch key.Value {
		case "field":
			if err := val.Decode(&f.Field); err != nil {
				return err
			}
		case "operator":
			if err := val.Decode(&f.Operator); err != nil {
				return err
			}
		case "value":
			value = val
		default:
			return fmt.Errorf("line %d: field %s not found in type api.Filter", key.Line, key.Value)
		}
	}
	f.Value = nil
	if value == nil {
		return nil
	}
	textTimestamps(value)
	return value.Decode(&f.Value)
}

func textTimestamps(n *yaml.Node) {
	if n.Kind == yaml.ScalarNode && n.ShortTag() == "!!timestamp" {
		n.Tag = "!!str"
	}
	for _, c := range n.Content {
		textTimestamps(c)
	}
}

// TimeRange bounds the sale timestamp, inclusive.
type TimeRange struct {
	StartDate Timestamp `json:"start_date" yaml:"start_date"`
	EndDate   Timestamp `json:"end_date" yaml:"end_date"`
}

// OrderBy sorts by a field or a result label.
type OrderBy struct {
	Field     string `json:"field" yaml:"field"`
	Direction string `json:"direction" yaml:"direction"`
}

// timestampLayouts are tried in order. Layouts without a zone read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Timestamp accepts RFC3339 and the common zone-less forms.
type Timestamp struct {
	time.Time
}

// ParseTimestamp parses s with the accepted layouts and returns it in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q (want RFC3339 or YYYY-MM-DD[THH:MM:SS])", s)
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.UTC().Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := ParseTimestamp(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalYAML() (any, error) {
	return t.UTC().Format(time.RFC3339), nil
}

// ToDomain converts the wire request. Enum membership is checked later by
// domain.AnalyticsRequest.Validate.
func (q AnalyticsQuery) ToDomain() domain.AnalyticsRequest {
	req := domain.AnalyticsRequest{Limit: q.Limit}
	for _, m := range q.Metrics {
		req.Metrics = append(req.Metrics, domain.Metric{
			Field:    m.Field,
			Function: domain.MetricFunction(strings.ToLower(m.Function)),
			Alias:    m.Alias,
		})
	}
	for _, d := range q.Dimensions {
		req.Dimensions = append(req.Dimensions, domain.Dimension(d))
	}
	for _, f := range q.Filters {
		req.Filters = append(req.Filters, domain.Filter{
			Field:    f.Field,
			Operator: domain.FilterOperator(strings.ToLower(f.Operator)),
			Value:    f.Value,
		})
	}
	if q.TimeRange != nil {
		req.TimeRange = &domain.TimeRange{Start: q.TimeRange.StartDate.Time, End: q.TimeRange.EndDate.Time}
	}
	if q.OrderBy != nil {
		req.OrderBy = &domain.OrderBy{
			Field:     q.OrderBy.Field,
			Direction: domain.SortDirection(strings.ToLower(q.OrderBy.Direction)),
		}
	}
	return req
}

// DataResponse wraps every successful list or rows payload.
type DataResponse[T any] struct {
	Data T `json:"data"`
}

// IgnoredFragment reports a request fragment the compiler dropped.
type IgnoredFragment struct {
	Kind   string `json:"kind"`
	Index  int    `json:"index"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ExplainResponse is the rendered statement for a request.
type ExplainResponse struct {
	Dialect string            `json:"dialect"`
	SQL     string            `json:"sql"`
	Args    []any             `json:"args"`
	Columns []string          `json:"columns"`
	Ignored []IgnoredFragment `json:"ignored"`
}

// IDName is a store or product option.
type IDName struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// OptionsResponse bundles every option list.
type OptionsResponse struct {
	Channels     []string `json:"channels"`
	Stores       []IDName `json:"stores"`
	SaleStatuses []string `json:"sale_status"`
	Products     []IDName `json:"products"`
}

// HealthResponse is served at the root path.
type HealthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Error is the body of every error response.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
