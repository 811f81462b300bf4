package domain

// StoreOption is an active store offered to filter pickers.
type StoreOption struct {
	ID   int64
	Name string
}

// ProductOption is a product offered to filter pickers.
type ProductOption struct {
	ID   int64
	Name string
}

// Options bundles every option list.
type Options struct {
	Channels     []string
	Stores       []StoreOption
	SaleStatuses []string
	Products     []ProductOption
}
