// Package analytics compiles analytics requests into SQL for the configured
// engine and executes them.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"datafood/internal/compiler"
	"datafood/internal/domain"
)

// DefaultQueryTimeout bounds a single analytics statement.
const DefaultQueryTimeout = 30 * time.Second

// Service provides analytics query planning and execution.
type Service struct {
	compiler *compiler.Compiler
	dialect  *compiler.Dialect
	exec     domain.AnalyticsExecutor
	timeout  time.Duration
	logger   *slog.Logger
}

// NewService creates an analytics Service rendering for dialect.
func NewService(exec domain.AnalyticsExecutor, dialect *compiler.Dialect, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		compiler: compiler.New(logger),
		dialect:  dialect,
		exec:     exec,
		timeout:  DefaultQueryTimeout,
		logger:   logger,
	}
}

// SetQueryTimeout overrides the per-statement timeout. Zero disables it.
func (s *Service) SetQueryTimeout(d time.Duration) {
	s.timeout = d
}

// Dialect returns the dialect statements are rendered for.
func (s *Service) Dialect() *compiler.Dialect { return s.dialect }

// Explain validates, compiles and renders req without executing it.
func (s *Service) Explain(_ context.Context, req domain.AnalyticsRequest) (*Plan, error) {
	return s.explain(req, s.dialect)
}

// ExplainFor is Explain for another dialect, used to preview SQL for an
// engine other than the one configured.
func (s *Service) ExplainFor(_ context.Context, req domain.AnalyticsRequest, dialect string) (*Plan, error) {
	d, err := compiler.GetDialect(dialect)
	if err != nil {
		return nil, domain.ErrValidation("%s", err.Error())
	}
	return s.explain(req, d)
}

func (s *Service) explain(req domain.AnalyticsRequest, d *compiler.Dialect) (plan *Plan, err error) {
	defer func() {
		if r := recover(); r != nil {
			plan = nil
			err = domain.ErrInternal(fmt.Errorf("%v", r), "compile analytics request")
		}
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	q, err := s.compiler.Compile(req)
	if err != nil {
		return nil, err
	}
	stmt, err := compiler.Render(q, d)
	if err != nil {
		return nil, classify(err)
	}
	return &Plan{Dialect: d.Type, SQL: stmt.SQL, Args: stmt.Args, Columns: q.Labels(), Ignored: q.Ignored}, nil
}

// Run plans req and executes it against the configured engine.
func (s *Service) Run(ctx context.Context, req domain.AnalyticsRequest) (*Result, error) {
	plan, err := s.Explain(ctx, req)
	if err != nil {
		return nil, err
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := s.exec.Query(ctx, plan.SQL, plan.Args)
	if err != nil {
		s.logger.Warn("analytics query failed", "sql", plan.SQL, "error", err)
		return nil, classify(err)
	}
	s.logger.Debug("analytics query executed",
		"sql", plan.SQL, "rows", len(res.Rows), "duration", time.Since(start))

	return &Result{Plan: *plan, Result: res}, nil
}

// classify keeps typed domain errors and wraps anything else as internal.
func classify(err error) error {
	var (
		dbErr       *domain.DatabaseError
		validation  *domain.ValidationError
		internalErr *domain.InternalError
	)
	switch {
	case errors.As(err, &dbErr), errors.As(err, &validation), errors.As(err, &internalErr):
		return err
	}
	return domain.ErrInternal(err, "execute analytics query")
}
