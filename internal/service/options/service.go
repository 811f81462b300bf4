// Package options serves the lookup lists behind filter pickers.
package options

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"datafood/internal/domain"
)

// Service provides the channel, store, sale status and product lists.
type Service struct {
	repo   domain.OptionsRepository
	logger *slog.Logger
}

// NewService creates a new options Service.
func NewService(repo domain.OptionsRepository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{repo: repo, logger: logger}
}

// Channels lists distinct channel names.
func (s *Service) Channels(ctx context.Context) ([]string, error) {
	out, err := s.repo.ListChannels(ctx)
	return out, s.wrap("list channels", err)
}

// Stores lists active stores.
func (s *Service) Stores(ctx context.Context) ([]domain.StoreOption, error) {
	out, err := s.repo.ListActiveStores(ctx)
	return out, s.wrap("list stores", err)
}

// SaleStatuses lists distinct sale statuses.
func (s *Service) SaleStatuses(ctx context.Context) ([]string, error) {
	out, err := s.repo.ListSaleStatuses(ctx)
	return out, s.wrap("list sale statuses", err)
}

// Products lists every product.
func (s *Service) Products(ctx context.Context) ([]domain.ProductOption, error) {
	out, err := s.repo.ListProducts(ctx)
	return out, s.wrap("list products", err)
}

// All loads the four lists concurrently. The first failure cancels the
// remaining queries.
func (s *Service) All(ctx context.Context) (*domain.Options, error) {
	var opts domain.Options
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	g.Go(func() (err error) {
		opts.Channels, err = s.Channels(gctx)
		return err
	})
	g.Go(func() (err error) {
		opts.Stores, err = s.Stores(gctx)
		return err
	})
	g.Go(func() (err error) {
		opts.SaleStatuses, err = s.SaleStatuses(gctx)
		return err
	})
	g.Go(func() (err error) {
		opts.Products, err = s.Products(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &opts, nil
}

func (s *Service) wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	s.logger.Warn("options query failed", "op", op, "error", err)
	var dbErr *domain.DatabaseError
	if errors.As(err, &dbErr) {
		return err
	}
	return domain.ErrInternal(err, "%s", op)
}
