// Package schema is the static catalog of the sales schema: tables, columns,
// the friendly field names exposed to analytics requests, and the fixed join
// paths that reach every table from the sales fact table.
//
// Everything here is built at package initialization and never mutated, so
// it is safe for concurrent use without locking.
package schema

// Table identifies a table of the sales schema.
type Table string

const (
	Sales        Table = "sales"
	Stores       Table = "stores"
	Channels     Table = "channels"
	ProductSales Table = "product_sales"
	Products     Table = "products"
	Payments     Table = "payments"
	PaymentTypes Table = "payment_types"
)

// FactTable anchors every query and never needs a join.
const FactTable = Sales

// Column is a table-qualified column reference.
type Column struct {
	Table Table
	Name  string
}

func (c Column) String() string { return string(c.Table) + "." + c.Name }

func col(t Table, name string) Column { return Column{Table: t, Name: name} }

// tableColumns is the column inventory of each table, in DDL order.
var tableColumns = map[Table][]string{
	Sales:        {"id", "store_id", "channel_id", "customer_id", "total_amount", "total_discount", "delivery_fee", "created_at", "sale_status_desc"},
	Stores:       {"id", "name", "is_active"},
	Channels:     {"id", "name"},
	ProductSales: {"id", "sale_id", "product_id", "quantity", "total_price"},
	Products:     {"id", "name"},
	Payments:     {"id", "sale_id", "payment_type_id", "value"},
	PaymentTypes: {"id", "description"},
}

// tableOrder lists tables in dependency order (referenced tables first).
var tableOrder = []Table{Stores, Channels, Products, PaymentTypes, Sales, ProductSales, Payments}

// Tables returns every table of the schema in dependency order.
func Tables() []Table {
	return append([]Table(nil), tableOrder...)
}

// Columns returns the column names of t, or nil for an unknown table.
func Columns(t Table) []string {
	cols, ok := tableColumns[t]
	if !ok {
		return nil
	}
	return append([]string(nil), cols...)
}

// JoinStep joins Table with Left = Right.
type JoinStep struct {
	Table Table
	Left  Column
	Right Column
}

// joinPaths holds the only way to reach each non-fact table. Bridge tables
// (product_sales, payments) precede the dimension table they lead to.
var joinPaths = map[Table][]JoinStep{
	Stores:   {{Table: Stores, Left: col(Sales, "store_id"), Right: col(Stores, "id")}},
	Channels: {{Table: Channels, Left: col(Sales, "channel_id"), Right: col(Channels, "id")}},
	ProductSales: {
		{Table: ProductSales, Left: col(Sales, "id"), Right: col(ProductSales, "sale_id")},
	},
	Products: {
		{Table: ProductSales, Left: col(Sales, "id"), Right: col(ProductSales, "sale_id")},
		{Table: Products, Left: col(ProductSales, "product_id"), Right: col(Products, "id")},
	},
	Payments: {
		{Table: Payments, Left: col(Sales, "id"), Right: col(Payments, "sale_id")},
	},
	PaymentTypes: {
		{Table: Payments, Left: col(Sales, "id"), Right: col(Payments, "sale_id")},
		{Table: PaymentTypes, Left: col(Payments, "payment_type_id"), Right: col(PaymentTypes, "id")},
	},
}

// PathTo returns the join steps that reach t from the fact table. The fact
// table itself and unknown tables have an empty path.
func PathTo(t Table) []JoinStep {
	return append([]JoinStep(nil), joinPaths[t]...)
}
