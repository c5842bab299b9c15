package catalog_test

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/dimasukma/backend-etalase/internal/catalog"
)

type stubFetcher struct {
	pages     int
	details   int
	page      catalog.ProductPage
	product   catalog.Product
	pageErr   error
	detailErr error
}

func (s *stubFetcher) FetchProducts(_ context.Context, limit, skip int) (catalog.ProductPage, error) {
	s.pages++
	if s.pageErr != nil {
		return catalog.ProductPage{}, s.pageErr
	}
	page := s.page
	page.Limit = limit
	page.Skip = skip
	return page, nil
}

func (s *stubFetcher) FetchProductByID(_ context.Context, _ int) (catalog.Product, error) {
	s.details++
	if s.detailErr != nil {
		return catalog.Product{}, s.detailErr
	}
	return s.product, nil
}

func samplePage() catalog.ProductPage {
	return catalog.ProductPage{
		Products: []catalog.Product{{
			ID:                 1,
			Title:              "Essence Mascara",
			Price:              9.99,
			DiscountPercentage: 7.17,
			Stock:              5,
		}},
		Total: 194,
	}
}

func newCacheBackedService(t *testing.T, fetcher catalog.Fetcher) *catalog.Service {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc, err := catalog.NewService(catalog.ServiceConfig{
		Fetcher:      fetcher,
		Cache:        catalog.NewCache(client, time.Minute),
		DefaultLimit: 30,
		MaxLimit:     100,
	})
	require.NoError(t, err)
	return svc
}

func TestListProductsCachesPages(t *testing.T) {
	fetcher := &stubFetcher{page: samplePage()}
	svc := newCacheBackedService(t, fetcher)
	ctx := context.Background()

	first, err := svc.ListProducts(ctx, 30, 0)
	require.NoError(t, err)
	require.Len(t, first.Products, 1)
	require.Equal(t, 194, first.Total)

	second, err := svc.ListProducts(ctx, 30, 0)
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, fetcher.pages, "second read must come from cache")

	_, err = svc.ListProducts(ctx, 30, 30)
	require.NoError(t, err)
	require.Equal(t, 2, fetcher.pages, "different page is a different key")
}

func TestGetProductCaches(t *testing.T) {
	fetcher := &stubFetcher{product: samplePage().Products[0]}
	svc := newCacheBackedService(t, fetcher)
	ctx := context.Background()

	first, err := svc.GetProduct(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Essence Mascara", first.Title)

	_, err = svc.GetProduct(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, fetcher.details)
}

func TestListProductsWithoutCache(t *testing.T) {
	fetcher := &stubFetcher{page: samplePage()}
	svc, err := catalog.NewService(catalog.ServiceConfig{Fetcher: fetcher})
	require.NoError(t, err)

	page, err := svc.ListProducts(context.Background(), 0, -5)
	require.NoError(t, err)
	require.Equal(t, 30, page.Limit, "limit defaults when unset")
	require.Equal(t, 0, page.Skip, "negative skip is clamped")
}

func TestListProductsClampsLimit(t *testing.T) {
	fetcher := &stubFetcher{page: samplePage()}
	svc, err := catalog.NewService(catalog.ServiceConfig{Fetcher: fetcher, DefaultLimit: 30, MaxLimit: 50})
	require.NoError(t, err)

	page, err := svc.ListProducts(context.Background(), 500, 0)
	require.NoError(t, err)
	require.Equal(t, 50, page.Limit)
}

func TestUpstreamErrorsPassThrough(t *testing.T) {
	fetcher := &stubFetcher{pageErr: errors.New("connection refused")}
	svc, err := catalog.NewService(catalog.ServiceConfig{Fetcher: fetcher})
	require.NoError(t, err)

	_, err = svc.ListProducts(context.Background(), 30, 0)
	require.Error(t, err)
}

func TestNewServiceRequiresFetcher(t *testing.T) {
	_, err := catalog.NewService(catalog.ServiceConfig{})
	require.Error(t, err)
}
