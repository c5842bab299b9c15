package catalog

import (
	"context"
	"errors"
	"fmt"
)

// Fetcher is the upstream product provider contract consumed by the service.
type Fetcher interface {
	FetchProducts(ctx context.Context, limit, skip int) (ProductPage, error)
	FetchProductByID(ctx context.Context, id int) (Product, error)
}

// Service orchestrates upstream fetches and caching for catalog reads.
type Service struct {
	fetcher      Fetcher
	cache        *Cache
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Fetcher      Fetcher
	Cache        *Cache
	DefaultLimit int
	MaxLimit     int
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Fetcher == nil {
		return nil, errors.New("catalog: fetcher is required")
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 30
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		fetcher:      cfg.Fetcher,
		cache:        cfg.Cache,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// NormalizePage clamps limit/skip to the configured bounds.
func (s *Service) NormalizePage(limit, skip int) (int, int) {
	if limit < 1 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}
	if skip < 0 {
		skip = 0
	}
	return limit, skip
}

// ListProducts returns one page of products, serving from cache when warm.
func (s *Service) ListProducts(ctx context.Context, limit, skip int) (ProductPage, error) {
	limit, skip = s.NormalizePage(limit, skip)
	key := fmt.Sprintf("catalog:products:%d:%d", limit, skip)

	var page ProductPage
	if found, err := s.cache.GetJSON(ctx, key, &page); err == nil && found {
		return page, nil
	}
	page, err := s.fetcher.FetchProducts(ctx, limit, skip)
	if err != nil {
		return ProductPage{}, err
	}
	_ = s.cache.SetJSON(ctx, key, page)
	return page, nil
}

// GetProduct returns a single product, serving from cache when warm.
func (s *Service) GetProduct(ctx context.Context, id int) (Product, error) {
	key := fmt.Sprintf("catalog:product:%d", id)

	var product Product
	if found, err := s.cache.GetJSON(ctx, key, &product); err == nil && found {
		return product, nil
	}
	product, err := s.fetcher.FetchProductByID(ctx, id)
	if err != nil {
		return Product{}, err
	}
	_ = s.cache.SetJSON(ctx, key, product)
	return product, nil
}
