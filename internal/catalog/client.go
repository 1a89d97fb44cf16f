// Package catalog fetches reference collections (service plans, offerings,
// brokers, instances, spaces) from the platform's v3 API and caches them for
// the duration of a reconciliation run.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// perPage matches the page size the original backfill requested; large enough
// that most installations fit in a single page.
const perPage = 5000

// Client is a read-only JSON client for the platform's paginated v3 resource
// listings.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a catalog client targeting the given API base URL
// (e.g. "https://api.example.com"). When token is non-empty, an Authorization
// header is set on every request.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// APIError represents a non-2xx response from the catalog API.
type APIError struct {
	StatusCode int
	Path       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("catalog API %s: HTTP %d: %s", e.Path, e.StatusCode, e.Message)
}

// page is the envelope of a v3 listing response. Resources are kept raw so a
// single pagination loop can serve every collection type.
type page struct {
	Pagination struct {
		Next *struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"pagination"`
	Resources []json.RawMessage `json:"resources"`
}

// listAll fetches every page of the collection at path and decodes each
// resource into T, following pagination.next.href until exhausted.
func listAll[T any](ctx context.Context, c *Client, path string) ([]T, error) {
	url := fmt.Sprintf("%s%s?per_page=%d", c.baseURL, path, perPage)

	var out []T
	for url != "" {
		p, err := c.getPage(ctx, path, url)
		if err != nil {
			return nil, err
		}
		for _, raw := range p.Resources {
			var item T
			if err := json.Unmarshal(raw, &item); err != nil {
				return nil, fmt.Errorf("decoding %s resource: %w", path, err)
			}
			out = append(out, item)
		}
		url = ""
		if p.Pagination.Next != nil {
			url = p.Pagination.Next.Href
		}
	}
	return out, nil
}

func (c *Client) getPage(ctx context.Context, path, url string) (*page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", path, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", path, err)
	}
	if resp.StatusCode >= 400 {
		return nil, &APIError{StatusCode: resp.StatusCode, Path: path, Message: strings.TrimSpace(string(body))}
	}

	var p page
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decoding %s response: %w", path, err)
	}
	return &p, nil
}
