// Package firecrawl provides a minimal Firecrawl scrape client, used as the
// fallback reader when Jina cannot fetch a page.
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Firecrawl operations used by enrichment.
type Client interface {
	// Scrape fetches one URL and returns its markdown content.
	Scrape(ctx context.Context, targetURL string) (string, error)
}

// Option configures the Firecrawl client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a Firecrawl client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.firecrawl.dev/v2",
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type scrapeRequest struct {
	URL     string   `json:"url"`
	Formats []string `json:"formats"`
}

type scrapeResponse struct {
	Success bool `json:"success"`
	Data    struct {
		Markdown string `json:"markdown"`
	} `json:"data"`
	Error string `json:"error"`
}

func (c *httpClient) Scrape(ctx context.Context, targetURL string) (string, error) {
	payload, err := json.Marshal(scrapeRequest{URL: targetURL, Formats: []string{"markdown"}})
	if err != nil {
		return "", eris.Wrap(err, "firecrawl: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scrape", bytes.NewReader(payload))
	if err != nil {
		return "", eris.Wrap(err, "firecrawl: create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "firecrawl: scrape request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", eris.Wrap(err, "firecrawl: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("firecrawl: unexpected status %d: %s", resp.StatusCode, string(body))
	}

	var result scrapeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", eris.Wrap(err, "firecrawl: unmarshal response")
	}
	if !result.Success {
		return "", eris.Errorf("firecrawl: scrape failed: %s", result.Error)
	}
	return result.Data.Markdown, nil
}
