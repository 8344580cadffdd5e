package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	sifterr "github.com/netsift/netsift/internal/errors"
)

// Client generates embeddings over HTTP. All chunk texts of one document
// are sent in a single batched request; transient failures are retried
// with exponential backoff, and returned dimensionality is validated
// before any vector is handed to a caller.
type Client struct {
	client    *http.Client
	transport *http.Transport
	config    ClientConfig
	retry     sifterr.RetryConfig

	mu     sync.RWMutex
	closed bool
}

// Verify interface implementation at compile time.
var _ Embedder = (*Client)(nil)

// NewClient creates an embedding client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
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
		// Per-request timeouts come from context so retries can outlive a
		// single attempt; no static client timeout.
		client:    &http.Client{Transport: transport},
		transport: transport,
		config:    cfg,
		retry:     retry,
	}, nil
}

// Embed generates an embedding for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) == 0 {
		return nil, sifterr.New(sifterr.ErrCodeEmbedFailed, "no embedding returned", nil)
	}
	return vecs[0], nil
}

// EmbedBatch embeds all texts in one upstream request. A zero-length input
// is a no-op: no HTTP call is made and an empty slice is returned.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.mu.RLock()
	if c.closed {
		c.mu.RUnlock()
		return nil, sifterr.New(sifterr.ErrCodeEmbedFailed, "embedder is closed", nil)
	}
	c.mu.RUnlock()

	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	vecs, err := sifterr.RetryWithResult(ctx, c.retry, func() ([][]float32, error) {
		return c.doEmbed(ctx, texts)
	})
	if err != nil {
		if sifterr.GetCode(err) == sifterr.ErrCodeDimensionMismatch {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, sifterr.New(sifterr.ErrCodeEmbedFailed,
			fmt.Sprintf("embedding failed after %d retries", c.retry.MaxRetries), err)
	}
	return vecs, nil
}

// doEmbed performs a single batched embedding request.
func (c *Client) doEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(embedRequest{Model: c.config.Model, Input: texts})
	if err != nil {
		return nil, sifterr.New(sifterr.ErrCodeEmbedFailed, "failed to marshal request", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.config.Endpoint+"/embed", bytes.NewReader(body))
	if err != nil {
		return nil, sifterr.New(sifterr.ErrCodeEmbedFailed, "failed to create request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		// Network failures are transient until retries are exhausted.
		return nil, sifterr.New(sifterr.ErrCodeEmbedUnavailable, "embedding service unreachable", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		msg := fmt.Sprintf("embedding failed with status %d: %s", resp.StatusCode, string(respBody))
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, sifterr.New(sifterr.ErrCodeEmbedUnavailable, msg, nil)
		}
		return nil, sifterr.New(sifterr.ErrCodeEmbedFailed, msg, nil)
	}

	var result embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, sifterr.New(sifterr.ErrCodeEmbedUnavailable, "failed to decode response", err)
	}

	if len(result.Embeddings) != len(texts) {
		return nil, sifterr.New(sifterr.ErrCodeEmbedFailed,
			fmt.Sprintf("embedding count mismatch: sent %d texts, got %d vectors", len(texts), len(result.Embeddings)), nil)
	}

	// Validate dimensionality before any vector is used. A mismatch signals
	// config drift between the embedding model and the index schema and is
	// never retried.
	for i, vec := range result.Embeddings {
		if len(vec) != c.config.Dimensions {
			slog.Error("embedding_dimension_mismatch",
				slog.Int("expected", c.config.Dimensions),
				slog.Int("got", len(vec)),
				slog.Int("index", i),
				slog.String("model", c.config.Model))
			return nil, sifterr.New(sifterr.ErrCodeDimensionMismatch,
				fmt.Sprintf("expected dimension %d, got %d", c.config.Dimensions, len(vec)), nil)
		}
	}

	return result.Embeddings, nil
}

// Dimensions returns the configured embedding dimension.
func (c *Client) Dimensions() int { return c.config.Dimensions }

// ModelName returns the model identifier.
func (c *Client) ModelName() string { return c.config.Model }

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
