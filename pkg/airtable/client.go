// Package airtable provides a client for the Airtable REST API.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// maxBatchSize is Airtable's limit on records per create/update request.
const maxBatchSize = 10

// Client defines the Airtable operations used by the sync engine.
type Client interface {
	// ListRecords pages through every record in the table.
	ListRecords(ctx context.Context, table string) ([]Record, error)
	// CreateRecords inserts records in batches of 10 and returns the created
	// records with their assigned IDs, in input order.
	CreateRecords(ctx context.Context, table string, fields []map[string]any) ([]Record, error)
	// UpdateRecords patches existing records in batches of 10.
	UpdateRecords(ctx context.Context, table string, records []Record) error
	// DeleteRecord removes one record.
	DeleteRecord(ctx context.Context, table string, recordID string) error
}

// Record is one Airtable row: an opaque service-assigned ID plus its fields.
type Record struct {
	ID          string         `json:"id,omitempty"`
	Fields      map[string]any `json:"fields"`
	CreatedTime time.Time      `json:"createdTime,omitempty"`
}

// Option configures the Airtable client.
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

// WithRateLimit overrides the default Airtable rate limit (5 req/s).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

type httpClient struct {
	token   string
	baseID  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates an Airtable client for one base. Calls are throttled to
// 5 req/s, Airtable's per-base limit.
func NewClient(token, baseID string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseID:  baseID,
		baseURL: "https://api.airtable.com/v0",
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		limiter: rate.NewLimiter(5, 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) tableURL(table string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(table))
}

func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable
}

// do executes a request with rate limiting and exponential backoff on
// transient failures. Returns the response body and status code.
func (c *httpClient) do(ctx context.Context, method, reqURL string, payload any) ([]byte, int, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, 0, eris.Wrap(err, "airtable: marshal request")
		}
	}

	const maxAttempts = 3
	backoff := 1 * time.Second

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, 0, eris.Wrap(err, "airtable: rate limit")
			}
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
		if err != nil {
			return nil, 0, eris.Wrap(err, "airtable: create request")
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				select {
				case <-ctx.Done():
					return nil, 0, ctx.Err()
				case <-time.After(backoff):
				}
				backoff *= 2
				continue
			}
			return nil, 0, lastErr
		}

		respBody, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "airtable: read response body")
		}

		if retryableStatusCode(resp.StatusCode) && attempt < maxAttempts {
			lastErr = eris.Errorf("airtable: status %d: %s", resp.StatusCode, string(respBody))
			select {
			case <-ctx.Done():
				return nil, 0, ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
			continue
		}

		return respBody, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

func (c *httpClient) ListRecords(ctx context.Context, table string) ([]Record, error) {
	var all []Record
	offset := ""

	for {
		reqURL := c.tableURL(table)
		if offset != "" {
			reqURL += "?offset=" + url.QueryEscape(offset)
		}

		body, status, err := c.do(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return nil, eris.Wrap(err, "airtable: list records")
		}
		if status != http.StatusOK {
			return nil, eris.Errorf("airtable: list records status %d: %s", status, string(body))
		}

		var page listResponse
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, eris.Wrap(err, "airtable: unmarshal list response")
		}
		all = append(all, page.Records...)

		if page.Offset == "" {
			return all, nil
		}
		offset = page.Offset
	}
}

type recordsPayload struct {
	Records []Record `json:"records"`
}

func (c *httpClient) CreateRecords(ctx context.Context, table string, fields []map[string]any) ([]Record, error) {
	var created []Record

	for start := 0; start < len(fields); start += maxBatchSize {
		end := min(start+maxBatchSize, len(fields))
		batch := make([]Record, 0, end-start)
		for _, f := range fields[start:end] {
			batch = append(batch, Record{Fields: f})
		}

		body, status, err := c.do(ctx, http.MethodPost, c.tableURL(table), recordsPayload{Records: batch})
		if err != nil {
			return created, eris.Wrap(err, "airtable: create records")
		}
		if status != http.StatusOK {
			return created, eris.Errorf("airtable: create records status %d: %s", status, string(body))
		}

		var resp recordsPayload
		if err := json.Unmarshal(body, &resp); err != nil {
			return created, eris.Wrap(err, "airtable: unmarshal create response")
		}
		created = append(created, resp.Records...)
	}

	return created, nil
}

func (c *httpClient) UpdateRecords(ctx context.Context, table string, records []Record) error {
	for start := 0; start < len(records); start += maxBatchSize {
		end := min(start+maxBatchSize, len(records))

		body, status, err := c.do(ctx, http.MethodPatch, c.tableURL(table),
			recordsPayload{Records: records[start:end]})
		if err != nil {
			return eris.Wrap(err, "airtable: update records")
		}
		if status != http.StatusOK {
			return eris.Errorf("airtable: update records status %d: %s", status, string(body))
		}
	}
	return nil
}

func (c *httpClient) DeleteRecord(ctx context.Context, table string, recordID string) error {
	body, status, err := c.do(ctx, http.MethodDelete, c.tableURL(table)+"/"+url.PathEscape(recordID), nil)
	if err != nil {
		return eris.Wrapf(err, "airtable: delete record %s", recordID)
	}
	if status != http.StatusOK {
		return eris.Errorf("airtable: delete record %s status %d: %s", recordID, status, string(body))
	}
	return nil
}
