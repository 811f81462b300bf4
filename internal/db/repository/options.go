package repository

import (
	"context"
	"database/sql"

	"datafood/internal/domain"
)

const (
	listChannelsSQL     = "SELECT DISTINCT name FROM channels ORDER BY name"
	listActiveStoresSQL = "SELECT id, name FROM stores WHERE is_active = true ORDER BY name"
	listSaleStatusesSQL = "SELECT DISTINCT sale_status_desc FROM sales ORDER BY sale_status_desc"
	listProductsSQL     = "SELECT id, name FROM products ORDER BY name"
)

// OptionsRepo implements domain.OptionsRepository. Its statements take no
// parameters and run unchanged on every engine.
type OptionsRepo struct {
	db *sql.DB
}

func NewOptionsRepo(db *sql.DB) *OptionsRepo {
	return &OptionsRepo{db: db}
}

func (r *OptionsRepo) ListChannels(ctx context.Context) ([]string, error) {
	return r.strings(ctx, "list channels", listChannelsSQL)
}

func (r *OptionsRepo) ListActiveStores(ctx context.Context) ([]domain.StoreOption, error) {
	pairs, err := r.idNames(ctx, "list stores", listActiveStoresSQL)
	if err != nil {
		return nil, err
	}
	out := make([]domain.StoreOption, len(pairs))
	for i, p := range pairs {
		out[i] = domain.StoreOption{ID: p.id, Name: p.name}
	}
	return out, nil
}

func (r *OptionsRepo) ListSaleStatuses(ctx context.Context) ([]string, error) {
	return r.strings(ctx, "list sale statuses", listSaleStatusesSQL)
}

func (r *OptionsRepo) ListProducts(ctx context.Context) ([]domain.ProductOption, error) {
	pairs, err := r.idNames(ctx, "list products", listProductsSQL)
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProductOption, len(pairs))
	for i, p := range pairs {
		out[i] = domain.ProductOption{ID: p.id, Name: p.name}
	}
	return out, nil
}

func (r *OptionsRepo) strings(ctx context.Context, op, query string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapDBError(op, err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var s sql.NullString
		if err := rows.Scan(&s); err != nil {
			return nil, mapDBError(op, err)
		}
		if s.Valid {
			out = append(out, s.String)
		}
	}
	return out, mapDBError(op, rows.Err())
}

type idName struct {
	id   int64
	name string
}

func (r *OptionsRepo) idNames(ctx context.Context, op, query string) ([]idName, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, mapDBError(op, err)
	}
	defer rows.Close()

	var out []idName
	for rows.Next() {
		var p idName
		if err := rows.Scan(&p.id, &p.name); err != nil {
			return nil, mapDBError(op, err)
		}
		out = append(out, p)
	}
	return out, mapDBError(op, rows.Err())
}
