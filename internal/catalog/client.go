package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dimasukma/backend-etalase/internal/common"
	"github.com/dimasukma/backend-etalase/internal/obs"
	"github.com/dimasukma/backend-etalase/internal/resilience"
)

// ErrProductNotFound indicates the upstream has no product for the id.
var ErrProductNotFound = errors.New("catalog: product not found")

// Client fetches product records from the upstream catalog API. The cart core
// never talks to it directly; products reach the cart already resolved.
type Client struct {
	BaseURL string
	HTTP    resilience.HTTPClient
}

// NewClient builds a client for the given upstream base URL. Requests are
// retried with backoff behind a circuit breaker and traced via otelhttp.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	breaker := resilience.NewBreaker(10, 0.5, 30*time.Second).WithTarget("catalog-upstream")
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: resilience.HTTPClient{
			Client:      &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
			Breaker:     breaker,
			BaseBackoff: 100 * time.Millisecond,
			MaxAttempts: 3,
			Jitter:      0.2,
			Timeout:     timeout,
		},
	}
}

// Ping verifies the upstream is reachable by fetching a minimal product page.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.FetchProducts(ctx, 1, 0)
	return err
}

// FetchProducts retrieves one page of products. The upstream envelope is
// passed through untransformed.
func (c *Client) FetchProducts(ctx context.Context, limit, skip int) (ProductPage, error) {
	endpoint := fmt.Sprintf("%s/products?%s", c.BaseURL, url.Values{
		"limit": []string{strconv.Itoa(limit)},
		"skip":  []string{strconv.Itoa(skip)},
	}.Encode())
	var page ProductPage
	if err := c.getJSON(ctx, "products", endpoint, &page); err != nil {
		return ProductPage{}, err
	}
	return page, nil
}

// FetchProductByID retrieves a single product record.
func (c *Client) FetchProductByID(ctx context.Context, id int) (Product, error) {
	endpoint := fmt.Sprintf("%s/products/%d", c.BaseURL, id)
	var product Product
	if err := c.getJSON(ctx, "product_detail", endpoint, &product); err != nil {
		return Product{}, err
	}
	return product, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, rawURL string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("catalog: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		c.countUpstream(endpoint, "error")
		return fmt.Errorf("catalog: upstream request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		c.countUpstream(endpoint, "not_found")
		return ErrProductNotFound
	}
	if resp.StatusCode != http.StatusOK {
		c.countUpstream(endpoint, "error")
		return common.NewAppError("UPSTREAM", fmt.Sprintf("catalog upstream status %d", resp.StatusCode),
			http.StatusBadGateway, nil)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.countUpstream(endpoint, "error")
		return fmt.Errorf("catalog: read body: %w", err)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		c.countUpstream(endpoint, "error")
		return fmt.Errorf("catalog: decode body: %w", err)
	}
	c.countUpstream(endpoint, "ok")
	return nil
}

func (c *Client) countUpstream(endpoint, result string) {
	if obs.UpstreamRequestsTotal != nil {
		obs.UpstreamRequestsTotal.WithLabelValues(endpoint, result).Inc()
	}
}
