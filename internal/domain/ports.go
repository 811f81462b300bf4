package domain

import "context"

// AnalyticsExecutor runs a rendered, parameterized statement.
// Implemented by repository.AnalyticsRepo.
type AnalyticsExecutor interface {
	Query(ctx context.Context, sqlQuery string, args []any) (*QueryResult, error)
}

// OptionsRepository serves the fixed lookup queries behind filter pickers.
// Implemented by repository.OptionsRepo.
type OptionsRepository interface {
	ListChannels(ctx context.Context) ([]string, error)
	ListActiveStores(ctx context.Context) ([]StoreOption, error)
	ListSaleStatuses(ctx context.Context) ([]string, error)
	ListProducts(ctx context.Context) ([]ProductOption, error)
}
