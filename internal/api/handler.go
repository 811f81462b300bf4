// Package api serves the analytics and options endpoints over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"datafood/internal/domain"
	"datafood/internal/service/analytics"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// HealthMessage is returned by the root health check.
const HealthMessage = "Welcome to the DataFood Analytics API!"

// AnalyticsService is the analytics surface the handler needs.
// Implemented by analytics.Service.
type AnalyticsService interface {
	Run(ctx context.Context, req domain.AnalyticsRequest) (*analytics.Result, error)
	Explain(ctx context.Context, req domain.AnalyticsRequest) (*analytics.Plan, error)
	ExplainFor(ctx context.Context, req domain.AnalyticsRequest, dialect string) (*analytics.Plan, error)
}

// OptionsService is the options surface the handler needs.
// Implemented by options.Service.
type OptionsService interface {
	Channels(ctx context.Context) ([]string, error)
	Stores(ctx context.Context) ([]domain.StoreOption, error)
	SaleStatuses(ctx context.Context) ([]string, error)
	Products(ctx context.Context) ([]domain.ProductOption, error)
	All(ctx context.Context) (*domain.Options, error)
}

// Handler implements the HTTP endpoints.
type Handler struct {
	analytics AnalyticsService
	options   OptionsService
	logger    *slog.Logger
}

// NewHandler creates a Handler.
func NewHandler(analyticsSvc AnalyticsService, optionsSvc OptionsService, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{analytics: analyticsSvc, options: optionsSvc, logger: logger}
}

// Health answers GET /.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Message: HealthMessage})
}

// decodeQuery reads an AnalyticsQuery body. Unknown keys are rejected so
// typos in field names surface as 400s.
func decodeQuery(r *http.Request) (AnalyticsQuery, error) {
	var q AnalyticsQuery
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&q); err != nil {
		if errors.Is(err, io.EOF) {
			return q, domain.ErrValidation("request body is empty")
		}
		return q, domain.ErrValidation("invalid request body: %s", err.Error())
	}
	if dec.More() {
		return q, domain.ErrValidation("invalid request body: trailing data after JSON object")
	}
	return q, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status and writes the error body.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromDomainError(err)
	msg := errorMessage(status, err)
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, Error{Code: status, Message: msg})
}

func errorMessage(status int, err error) string {
	if status != http.StatusInternalServerError {
		return err.Error()
	}
	var dbErr *domain.DatabaseError
	if errors.As(err, &dbErr) {
		return fmt.Sprintf("Database error: %s", dbErr.Error())
	}
	return fmt.Sprintf("An unexpected error occurred: %s", err.Error())
}
