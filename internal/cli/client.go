package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/trisearch/internal/models"
)

// Searcher runs a search query. Implemented by *search.Engine and *HTTPClient.
type Searcher interface {
	Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error)
}

// HTTPClient talks to a running trisearch server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient returns a client for the server at baseURL (e.g. http://localhost:8080).
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Search posts the query to /api/v1/search.
func (c *HTTPClient) Search(ctx context.Context, query *models.SearchQuery) (*models.SearchResponse, error) {
	body, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/search", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	var response models.SearchResponse
	if err := c.do(req, &response); err != nil {
		return nil, err
	}
	return &response, nil
}

// Status fetches /api/v1/status into out.
func (c *HTTPClient) Status(ctx context.Context, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/status", nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
