package schema

// ExprKind distinguishes a plain column from a derived date part.
type ExprKind int

const (
	// ExprColumn projects the column as is.
	ExprColumn ExprKind = iota
	// ExprDate truncates a timestamp to its calendar date.
	ExprDate
	// ExprISODayOfWeek extracts the ISO day of week, 1 = Monday .. 7 = Sunday.
	ExprISODayOfWeek
	// ExprHour extracts the hour of day, 0..23.
	ExprHour
)

// Expr is a column expression. Derived kinds are pure functions of Column;
// dialects decide how to spell them.
type Expr struct {
	Kind   ExprKind
	Column Column
}

// Table returns the table that owns the expression.
func (e Expr) Table() Table { return e.Column.Table }

// ColumnExpr is a plain column reference.
func ColumnExpr(t Table, name string) Expr {
	return Expr{Kind: ExprColumn, Column: col(t, name)}
}

func derived(kind ExprKind, t Table, name string) Expr {
	return Expr{Kind: kind, Column: col(t, name)}
}

// Field is a friendly field name accepted in analytics requests.
type Field int

const (
	FieldUnknown Field = iota
	StoreName
	ChannelName
	ProductName
	PaymentType
	SaleStatus
	SaleDate
	DayOfWeek
	HourOfDay
	TotalAmount
	TotalDiscount
	DeliveryFee
	SaleID
	fieldCount
)

var fieldNames = [fieldCount]string{
	FieldUnknown:  "",
	StoreName:     "store_name",
	ChannelName:   "channel_name",
	ProductName:   "product_name",
	PaymentType:   "payment_type",
	SaleStatus:    "sale_status",
	SaleDate:      "sale_date",
	DayOfWeek:     "day_of_week",
	HourOfDay:     "hour_of_day",
	TotalAmount:   "total_amount",
	TotalDiscount: "total_discount",
	DeliveryFee:   "delivery_fee",
	SaleID:        "sale_id",
}

func (f Field) String() string {
	if f <= FieldUnknown || f >= fieldCount {
		return ""
	}
	return fieldNames[f]
}

// Entry describes how a field is queried.
//
// Value is used in predicates, aggregates and ordering. Projection is used
// when the field is selected or grouped as a dimension; it differs from Value
// for store_name and product_name, which filter on ids but display names.
type Entry struct {
	Field      Field
	Value      Expr
	Projection Expr
	// Numeric fields coerce every filter value to an integer.
	Numeric bool
}

// Table returns the table that owns the field's value expression.
func (e Entry) Table() Table { return e.Value.Table() }

var entries = [fieldCount]Entry{
	StoreName: {
		Value:      ColumnExpr(Stores, "id"),
		Projection: ColumnExpr(Stores, "name"),
		Numeric:    true,
	},
	ChannelName: {Value: ColumnExpr(Channels, "name")},
	ProductName: {
		Value:      ColumnExpr(Products, "id"),
		Projection: ColumnExpr(Products, "name"),
		Numeric:    true,
	},
	PaymentType:   {Value: ColumnExpr(PaymentTypes, "description")},
	SaleStatus:    {Value: ColumnExpr(Sales, "sale_status_desc")},
	SaleDate:      {Value: derived(ExprDate, Sales, "created_at")},
	DayOfWeek:     {Value: derived(ExprISODayOfWeek, Sales, "created_at"), Numeric: true},
	HourOfDay:     {Value: derived(ExprHour, Sales, "created_at"), Numeric: true},
	TotalAmount:   {Value: ColumnExpr(Sales, "total_amount")},
	TotalDiscount: {Value: ColumnExpr(Sales, "total_discount")},
	DeliveryFee:   {Value: ColumnExpr(Sales, "delivery_fee")},
	SaleID:        {Value: ColumnExpr(Sales, "id"), Numeric: true},
}

var fieldsByName = func() map[string]Field {
	m := make(map[string]Field, fieldCount)
	for f := FieldUnknown + 1; f < fieldCount; f++ {
		m[fieldNames[f]] = f
	}
	return m
}()

func init() {
	for f := FieldUnknown + 1; f < fieldCount; f++ {
		e := &entries[f]
		e.Field = f
		if e.Projection == (Expr{}) {
			e.Projection = e.Value
		}
		if e.Value.Column.Name == "" {
			panic("schema: field " + fieldNames[f] + " has no value expression")
		}
		if e.Value.Table() != e.Projection.Table() {
			panic("schema: field " + fieldNames[f] + " projects from a different table than it filters on")
		}
	}
}

// Lookup parses a friendly field name.
func Lookup(name string) (Field, bool) {
	f, ok := fieldsByName[name]
	return f, ok
}

// Resolve returns the catalog entry for f.
func Resolve(f Field) (Entry, bool) {
	if f <= FieldUnknown || f >= fieldCount {
		return Entry{}, false
	}
	return entries[f], true
}

// ResolveName combines Lookup and Resolve.
func ResolveName(name string) (Entry, bool) {
	f, ok := Lookup(name)
	if !ok {
		return Entry{}, false
	}
	return Resolve(f)
}

// OwnerTable returns the table a field lives in, or "" when f is unknown.
func OwnerTable(f Field) Table {
	e, ok := Resolve(f)
	if !ok {
		return ""
	}
	return e.Table()
}

// Fields returns every known field in declaration order.
func Fields() []Field {
	out := make([]Field, 0, fieldCount-1)
	for f := FieldUnknown + 1; f < fieldCount; f++ {
		out = append(out, f)
	}
	return out
}
