package api

import (
	"net/http"

	"datafood/internal/compiler"
	"datafood/internal/service/analytics"
)

// RunQuery answers POST /api/query with {"data": [row, ...]}.
func (h *Handler) RunQuery(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.analytics.Run(r.Context(), q.ToDomain())
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	rows := res.Result.Rows
	if rows == nil {
		rows = []map[string]any{}
	}
	writeJSON(w, http.StatusOK, DataResponse[[]map[string]any]{Data: rows})
}

// ExplainQuery answers POST /api/query/explain with the statement that
// /api/query would run. ?dialect= renders for another engine.
func (h *Handler) ExplainQuery(w http.ResponseWriter, r *http.Request) {
	q, err := decodeQuery(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	var plan *analytics.Plan
	if dialect := r.URL.Query().Get("dialect"); dialect != "" {
		plan, err = h.analytics.ExplainFor(r.Context(), q.ToDomain(), dialect)
	} else {
		plan, err = h.analytics.Explain(r.Context(), q.ToDomain())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, NewExplainResponse(plan))
}

// NewExplainResponse maps a plan to its wire form. Empty lists encode as [].
func NewExplainResponse(p *analytics.Plan) ExplainResponse {
	out := ExplainResponse{
		Dialect: string(p.Dialect),
		SQL:     p.SQL,
		Args:    p.Args,
		Columns: p.Columns,
		Ignored: make([]IgnoredFragment, len(p.Ignored)),
	}
	if out.Args == nil {
		out.Args = []any{}
	}
	if out.Columns == nil {
		out.Columns = []string{}
	}
	for i, ig := range p.Ignored {
		out.Ignored[i] = ignoredToAPI(ig)
	}
	return out
}

func ignoredToAPI(ig compiler.Ignored) IgnoredFragment {
	return IgnoredFragment{Kind: string(ig.Kind), Index: ig.Index, Field: ig.Field, Reason: ig.Reason}
}
