package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func count(t *testing.T, d *DB, query string) int {
	t.Helper()
	var n int
	require.NoError(t, d.Read.QueryRow(query).Scan(&n))
	return n
}

func TestSeedDemoData(t *testing.T) {
	d := OpenTestSQLite(t, true)

	assert.Equal(t, 4, count(t, d, "SELECT count(*) FROM stores"))
	assert.Equal(t, 1, count(t, d, "SELECT count(*) FROM stores WHERE is_active = false"))
	assert.Equal(t, len(demoChannels), count(t, d, "SELECT count(*) FROM channels"))
	assert.Equal(t, len(demoProducts), count(t, d, "SELECT count(*) FROM products"))
	assert.Equal(t, len(demoPaymentTypes), count(t, d, "SELECT count(*) FROM payment_types"))
	assert.Equal(t, DemoSales, count(t, d, "SELECT count(*) FROM sales"))

	assert.Zero(t, count(t, d, "SELECT count(*) FROM sales s WHERE NOT EXISTS (SELECT 1 FROM product_sales ps WHERE ps.sale_id = s.id)"))
	assert.Zero(t, count(t, d, "SELECT count(*) FROM sales s WHERE NOT EXISTS (SELECT 1 FROM payments p WHERE p.sale_id = s.id)"))
	assert.Zero(t, count(t, d, `SELECT count(*) FROM sales s
		WHERE abs(s.total_amount - (SELECT sum(p.value) FROM payments p WHERE p.sale_id = s.id)) > 0.01`))
	assert.Positive(t, count(t, d, "SELECT count(*) FROM sales WHERE sale_status_desc = 'CANCELLED'"))
}

func TestSeedDemoData_IsIdempotent(t *testing.T) {
	d := OpenTestSQLite(t, true)

	seeded, err := SeedDemoData(context.Background(), d.Write, d.Engine)
	require.NoError(t, err)
	assert.False(t, seeded)
	assert.Equal(t, DemoSales, count(t, d, "SELECT count(*) FROM sales"))
}

func TestSeedDemoData_IsDeterministic(t *testing.T) {
	a := OpenTestSQLite(t, true)
	b := OpenTestSQLite(t, true)

	const q = "SELECT count(*) FROM sales WHERE store_id = 1 AND channel_id = 2"
	assert.Equal(t, count(t, a, q), count(t, b, q))

	const items = "SELECT count(*) FROM product_sales"
	assert.Equal(t, count(t, a, items), count(t, b, items))
}

func TestSeedDemoData_DuckDB(t *testing.T) {
	d := OpenTestDuckDB(t, true)
	assert.Equal(t, DemoSales, count(t, d, "SELECT count(*) FROM sales"))
	assert.Equal(t, 3, count(t, d, "SELECT count(*) FROM stores WHERE is_active = true"))
}

func TestRebind(t *testing.T) {
	q := "INSERT INTO t (a, b) VALUES (?, ?)"
	assert.Equal(t, "INSERT INTO t (a, b) VALUES ($1, $2)", rebind(EnginePostgres, q))
	assert.Equal(t, q, rebind(EngineSQLite, q))
	assert.Equal(t, q, rebind(EngineMySQL, q))
}
