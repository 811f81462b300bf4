package api

import (
	"net/http"

	"datafood/internal/domain"
)

// ListChannels answers GET /api/options/channels.
func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	out, err := h.options.Channels(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DataResponse[[]string]{Data: nonNil(out)})
}

// ListStores answers GET /api/options/stores with active stores.
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	out, err := h.options.Stores(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DataResponse[[]IDName]{Data: storesToAPI(out)})
}

// ListSaleStatuses answers GET /api/options/sale_status.
func (h *Handler) ListSaleStatuses(w http.ResponseWriter, r *http.Request) {
	out, err := h.options.SaleStatuses(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DataResponse[[]string]{Data: nonNil(out)})
}

// ListProducts answers GET /api/options/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	out, err := h.options.Products(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DataResponse[[]IDName]{Data: productsToAPI(out)})
}

// ListOptions answers GET /api/options with every list at once.
func (h *Handler) ListOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := h.options.All(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DataResponse[OptionsResponse]{Data: OptionsResponse{
		Channels:     nonNil(opts.Channels),
		Stores:       storesToAPI(opts.Stores),
		SaleStatuses: nonNil(opts.SaleStatuses),
		Products:     productsToAPI(opts.Products),
	}})
}

// === Mapping helpers ===

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func storesToAPI(in []domain.StoreOption) []IDName {
	out := make([]IDName, len(in))
	for i, s := range in {
		out[i] = IDName{ID: s.ID, Name: s.Name}
	}
	return out
}

func productsToAPI(in []domain.ProductOption) []IDName {
	out := make([]IDName, len(in))
	for i, p := range in {
		out[i] = IDName{ID: p.ID, Name: p.Name}
	}
	return out
}
