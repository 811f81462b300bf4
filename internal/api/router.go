package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"datafood/internal/middleware"
)

// RouterConfig carries the cross-cutting settings for NewRouter.
type RouterConfig struct {
	AllowedOrigins []string
	RateLimit      middleware.RateLimitConfig
	Logger         *slog.Logger
}

// NewRouter mounts the handler under a chi router with request IDs, access
// logging, panic recovery, CORS and per-client rate limiting. ctx bounds the
// rate limiter's background sweep.
func NewRouter(ctx context.Context, h *Handler, cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.AccessLog(logger))
	r.Use(middleware.Recover(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: !wildcard(cfg.AllowedOrigins),
		MaxAge:           300,
	}))
	if cfg.RateLimit.RequestsPerSecond > 0 {
		r.Use(middleware.RateLimiter(ctx, cfg.RateLimit))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, Error{Code: http.StatusNotFound, Message: "not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, Error{Code: http.StatusMethodNotAllowed, Message: "method not allowed"})
	})

	r.Get("/", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/query", h.RunQuery)
		r.Post("/query/explain", h.ExplainQuery)
		r.Route("/options", func(r chi.Router) {
			r.Get("/", h.ListOptions)
			r.Get("/channels", h.ListChannels)
			r.Get("/stores", h.ListStores)
			r.Get("/sale_status", h.ListSaleStatuses)
			r.Get("/products", h.ListProducts)
		})
	})
	return r
}

func wildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}
