package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rpattn/salespipe/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Client fetches product metadata from an HTTP product-catalog API.
// The API serves GET {base}/products/{id} with a JSON body per product.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a catalog client for the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// productPayload mirrors the catalog API response shape.
type productPayload struct {
	ID          json.Number `json:"id"`
	Title       string      `json:"title"`
	Price       float64     `json:"price"`
	Category    string      `json:"category"`
	Description string      `json:"description"`
	Rating      struct {
		Rate  float64 `json:"rate"`
		Count int     `json:"count"`
	} `json:"rating"`
}

// Product fetches metadata for one product id. A 404 maps to ErrNotFound;
// timeouts and transport errors are returned as-is so callers can classify
// them.
func (c *Client) Product(ctx context.Context, productID string) (domain.ProductMetadata, error) {
	if strings.TrimSpace(productID) == "" {
		return domain.ProductMetadata{}, fmt.Errorf("%w: empty product id", ErrNotFound)
	}

	endpoint := fmt.Sprintf("%s/products/%s", c.baseURL, url.PathEscape(productID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.ProductMetadata{}, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.ProductMetadata{}, fmt.Errorf("catalog request for %s: %w", productID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return domain.ProductMetadata{}, fmt.Errorf("%w: %s", ErrNotFound, productID)
	case resp.StatusCode != http.StatusOK:
		return domain.ProductMetadata{}, fmt.Errorf("catalog returned status %d for %s", resp.StatusCode, productID)
	}

	var payload productPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.ProductMetadata{}, fmt.Errorf("decode catalog response for %s: %w", productID, err)
	}

	return domain.ProductMetadata{
		CatalogID:   payload.ID.String(),
		Title:       payload.Title,
		Category:    payload.Category,
		ListPrice:   payload.Price,
		Description: truncate(payload.Description, 200),
		Rating:      payload.Rating.Rate,
	}, nil
}

// truncate shortens s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

var _ Lookup = (*Client)(nil)
