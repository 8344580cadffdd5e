package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	sifterr "github.com/netsift/netsift/internal/errors"
)

// ClientConfig configures the vector store client.
type ClientConfig struct {
	// Endpoint is the base URL of the vector store.
	Endpoint string

	// Collection is the target collection name.
	Collection string

	// APIKey is sent as the api-key header when set.
	APIKey string

	// Dimensions is the collection's vector dimension. Every upserted
	// vector is validated against it before any request is issued.
	Dimensions int

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxRetries bounds transient-failure retries.
	MaxRetries int

	// PoolSize sizes the HTTP connection pool.
	PoolSize int
}

// Client is the vector store HTTP client.
type Client struct {
	client    *http.Client
	transport *http.Transport
	config    ClientConfig
	retry     sifterr.RetryConfig

	mu     sync.RWMutex
	closed bool
}

// NewClient creates a vector store client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("vector client requires a positive dimension, got %d", cfg.Dimensions)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = DefaultPoolSize
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	transport := &http.Transport{
		MaxIdleConns:        cfg.PoolSize,
		MaxIdleConnsPerHost: cfg.PoolSize,
		MaxConnsPerHost:     cfg.PoolSize * 2,
		IdleConnTimeout:     10 * time.Second,
	}

	retry := sifterr.DefaultRetryConfig()
	retry.MaxRetries = cfg.MaxRetries

	return &Client{
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		retry:     retry,
	}, nil
}

// Upsert writes or overwrites all of a document's chunk points in one
// batched call. Points with a wrong vector dimension fail fast before any
// request; transport failures retry with the standard backoff and then
// surface as fatal for the document.
func (c *Client) Upsert(ctx context.Context, points []Point) error {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return sifterr.New(sifterr.ErrCodeVectorUpsert, "vector client is closed", nil)
	}
	c.mu.RUnlock()

	if len(points) == 0 {
		return nil
	}

	// Dimension guard: never let a malformed vector reach the store.
	for _, p := range points {
		if len(p.Vector) != c.config.Dimensions {
			return sifterr.New(sifterr.ErrCodeDimensionMismatch,
				fmt.Sprintf("point %s: expected dimension %d, got %d", p.ID, c.config.Dimensions, len(p.Vector)), nil)
		}
	}

	wire := make([]wirePoint, len(points))
	for i, p := range points {
		wire[i] = wirePoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	body, err := json.Marshal(upsertRequest{Points: wire})
	if err != nil {
		return sifterr.New(sifterr.ErrCodeVectorUpsert, "failed to marshal points", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.config.Endpoint, c.config.Collection)
	err = sifterr.Retry(ctx, c.retry, func() error {
		return c.do(ctx, http.MethodPut, url, body, nil, sifterr.ErrCodeVectorUpsert)
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if sifterr.GetCode(err) == sifterr.ErrCodeVectorUpsert {
			return err
		}
		return sifterr.New(sifterr.ErrCodeVectorUpsert,
			fmt.Sprintf("upsert of %d points failed after %d retries", len(points), c.retry.MaxRetries), err)
	}
	return nil
}

// Search runs nearest-neighbor search by cosine similarity with exact-match
// filters applied by the store.
func (c *Client) Search(ctx context.Context, queryVec []float32, limit int, filters Filters) ([]Hit, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, sifterr.New(sifterr.ErrCodeVectorSearch, "vector client is closed", nil)
	}
	c.mu.RUnlock()

	if len(queryVec) != c.config.Dimensions {
		return nil, sifterr.New(sifterr.ErrCodeDimensionMismatch,
			fmt.Sprintf("query vector: expected dimension %d, got %d", c.config.Dimensions, len(queryVec)), nil)
	}
	if limit <= 0 {
		return []Hit{}, nil
	}

	req := searchRequest{
		Vector:      queryVec,
		Limit:       limit,
		WithPayload: true,
		Filter:      buildFilter(filters),
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, sifterr.New(sifterr.ErrCodeVectorSearch, "failed to marshal search request", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.config.Endpoint, c.config.Collection)
	var resp searchResponse
	err = sifterr.Retry(ctx, c.retry, func() error {
		return c.do(ctx, http.MethodPost, url, body, &resp, sifterr.ErrCodeVectorSearch)
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, sifterr.Wrap(sifterr.ErrCodeVectorSearch, err)
	}

	hits := make([]Hit, len(resp.Result))
	for i, r := range resp.Result {
		hits[i] = Hit{ID: r.ID, Score: r.Score, Payload: r.Payload}
	}
	return hits, nil
}

// Count returns the number of points in the collection.
func (c *Client) Count(ctx context.Context) (int, error) {
	url := fmt.Sprintf("%s/collections/%s", c.config.Endpoint, c.config.Collection)
	var resp collectionInfoResponse
	if err := c.do(ctx, http.MethodGet, url, nil, &resp, sifterr.ErrCodeVectorSearch); err != nil {
		return 0, err
	}
	return resp.Result.PointsCount, nil
}

// HealthCheck reports store reachability.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, c.config.Endpoint+"/healthz", nil, nil, sifterr.ErrCodeVectorUnavailable); err == nil {
		return nil
	}
	// Older deployments answer only on the root path.
	return c.do(ctx, http.MethodGet, c.config.Endpoint+"/", nil, nil, sifterr.ErrCodeVectorUnavailable)
}

// buildFilter translates Filters into the store's must-match conditions.
func buildFilter(f Filters) *wireFilter {
	if f.IsZero() {
		return nil
	}
	var must []wireCondition
	if f.Domain != "" {
		must = append(must, wireCondition{Key: "domain", Match: wireMatch{Value: f.Domain}})
	}
	if f.Language != "" {
		must = append(must, wireCondition{Key: "language", Match: wireMatch{Value: f.Language}})
	}
	if f.Country != "" {
		must = append(must, wireCondition{Key: "country", Match: wireMatch{Value: f.Country}})
	}
	if f.Mobile != nil {
		must = append(must, wireCondition{Key: "mobile", Match: wireMatch{Value: *f.Mobile}})
	}
	return &wireFilter{Must: must}
}

// do issues one HTTP request and decodes the response into out when set.
// Network errors and 5xx/429 map to the retryable unavailable code; other
// statuses map to failCode.
func (c *Client) do(ctx context.Context, method, url string, body []byte, out any, failCode string) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(reqCtx, method, url, reader)
	if err != nil {
		return sifterr.New(failCode, "failed to create request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.config.APIKey != "" {
		req.Header.Set("api-key", c.config.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return sifterr.New(sifterr.ErrCodeVectorUnavailable, "vector store unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := fmt.Sprintf("%s %s: status %d: %s", method, url, resp.StatusCode, string(respBody))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return sifterr.New(sifterr.ErrCodeVectorUnavailable, msg, nil)
		}
		return sifterr.New(failCode, msg, nil)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return sifterr.New(failCode, "failed to decode response", err)
		}
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.transport.CloseIdleConnections()
	return nil
}
