package db

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Demo data set sizes.
const (
	DemoSales = 240
	demoDays  = 30
)

// DemoStart is the first day of the demo sales window (UTC).
var DemoStart = time.Date(2024, time.May, 1, 0, 0, 0, 0, time.UTC)

type demoStore struct {
	id     int64
	name   string
	active bool
}

type demoProduct struct {
	id    int64
	name  string
	price decimal.Decimal
}

var (
	demoStores = []demoStore{
		{1, "Loja Centro", true},
		{2, "Loja Shopping", true},
		{3, "Loja Aeroporto", true},
		{4, "Loja Antiga", false},
	}
	demoChannels     = []string{"Presencial", "iFood", "Rappi", "App Próprio"}
	demoPaymentTypes = []string{"PIX", "Cartão de Crédito", "Cartão de Débito", "Dinheiro"}
	demoProducts     = []demoProduct{
		{1, "X-Burguer", decimal.RequireFromString("24.90")},
		{2, "Pizza Margherita", decimal.RequireFromString("49.90")},
		{3, "Refrigerante Lata", decimal.RequireFromString("6.50")},
		{4, "Batata Frita", decimal.RequireFromString("15.00")},
		{5, "Açaí 500ml", decimal.RequireFromString("22.00")},
		{6, "Salada Caesar", decimal.RequireFromString("28.40")},
	}
)

// SeedDemoData fills an empty sales schema with a deterministic data set:
// four stores (one inactive), four channels, six products, four payment
// types and DemoSales sales spread over 30 days from DemoStart. It returns
// false without writing anything when sales already has rows.
func SeedDemoData(ctx context.Context, db *sql.DB, engine Engine) (bool, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM sales").Scan(&n); err != nil {
		return false, fmt.Errorf("count sales: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin seed: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	s := &seeder{ctx: ctx, tx: tx, engine: engine}
	s.lookups()
	s.sales(rand.New(rand.NewPCG(2024, 5)))
	if s.err != nil {
		return false, s.err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit seed: %w", err)
	}
	return true, nil
}

// seeder keeps the first error and turns later inserts into no-ops.
type seeder struct {
	ctx    context.Context
	tx     *sql.Tx
	engine Engine
	err    error
}

func (s *seeder) insert(table string, columns []string, values ...any) {
	if s.err != nil {
		return
	}
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	query := "INSERT INTO " + table + " (" + strings.Join(columns, ", ") + ") VALUES (" + marks + ")"
	if _, err := s.tx.ExecContext(s.ctx, rebind(s.engine, query), values...); err != nil {
		s.err = fmt.Errorf("seed %s: %w", table, err)
	}
}

func (s *seeder) lookups() {
	for _, st := range demoStores {
		s.insert("stores", []string{"id", "name", "is_active"}, st.id, st.name, st.active)
	}
	for i, name := range demoChannels {
		s.insert("channels", []string{"id", "name"}, int64(i+1), name)
	}
	for _, p := range demoProducts {
		s.insert("products", []string{"id", "name"}, p.id, p.name)
	}
	for i, desc := range demoPaymentTypes {
		s.insert("payment_types", []string{"id", "description"}, int64(i+1), desc)
	}
}

func (s *seeder) sales(r *rand.Rand) {
	var itemID, paymentID int64
	deliveryFee := decimal.RequireFromString("7.99")

	for saleID := int64(1); saleID <= DemoSales; saleID++ {
		store := demoStores[r.IntN(len(demoStores))]
		channel := int64(r.IntN(len(demoChannels)) + 1)
		createdAt := DemoStart.
			AddDate(0, 0, r.IntN(demoDays)).
			Add(time.Duration(10+r.IntN(14)) * time.Hour).
			Add(time.Duration(r.IntN(60)) * time.Minute)

		status := "COMPLETED"
		if r.IntN(10) == 0 {
			status = "CANCELLED"
		}

		type line struct {
			product  demoProduct
			quantity int64
			total    decimal.Decimal
		}
		var lines []line
		subtotal := decimal.Zero
		for _, idx := range r.Perm(len(demoProducts))[:1+r.IntN(3)] {
			p := demoProducts[idx]
			qty := int64(1 + r.IntN(3))
			total := p.price.Mul(decimal.NewFromInt(qty))
			lines = append(lines, line{product: p, quantity: qty, total: total})
			subtotal = subtotal.Add(total)
		}

		discount := decimal.Zero
		if r.IntN(4) == 0 {
			discount = subtotal.Mul(decimal.NewFromFloat(0.1)).Round(2)
		}
		fee := decimal.Zero
		if channel != 1 {
			fee = deliveryFee
		}
		amount := subtotal.Sub(discount).Add(fee)

		s.insert("sales",
			[]string{"id", "store_id", "channel_id", "customer_id", "total_amount", "total_discount", "delivery_fee", "created_at", "sale_status_desc"},
			saleID, store.id, channel, int64(1+r.IntN(80)),
			money(amount), money(discount), money(fee), createdAt, status)

		for _, l := range lines {
			itemID++
			s.insert("product_sales", []string{"id", "sale_id", "product_id", "quantity", "total_price"},
				itemID, saleID, l.product.id, l.quantity, money(l.total))
		}

		// Roughly one sale in five is split across two payment types.
		payments := []decimal.Decimal{amount}
		if r.IntN(5) == 0 {
			first := amount.Div(decimal.NewFromInt(2)).Round(2)
			payments = []decimal.Decimal{first, amount.Sub(first)}
		}
		for _, value := range payments {
			paymentID++
			s.insert("payments", []string{"id", "sale_id", "payment_type_id", "value"},
				paymentID, saleID, int64(r.IntN(len(demoPaymentTypes))+1), money(value))
		}
	}
}

// money binds a two-decimal amount as float64, which every driver accepts
// for a DECIMAL column.
func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// rebind rewrites ? placeholders to $n for Postgres.
func rebind(engine Engine, query string) string {
	if engine != EnginePostgres {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}
