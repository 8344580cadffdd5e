// Package embed provides the batched HTTP client for the embedding
// inference service, plus an LRU-cached wrapper for query-time reuse.
package embed

import (
	"context"
	"time"
)

// Defaults for the embedding client.
const (
	DefaultEndpoint   = "http://localhost:8876"
	DefaultModel      = "nomic-embed-text"
	DefaultDimensions = 768
	DefaultTimeout    = 60 * time.Second
	DefaultMaxRetries = 3
	DefaultPoolSize   = 4
)

// Embedder generates embeddings for text.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for all texts in one upstream call
	// per configured batch. Returns one vector per input, input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding dimension.
	Dimensions() int

	// ModelName returns the model identifier.
	ModelName() string

	// Close releases resources.
	Close() error
}

// ClientConfig configures the embedding HTTP client.
type ClientConfig struct {
	// Endpoint is the base URL of the embedding service.
	Endpoint string

	// Model is the embedding model name sent with each request.
	Model string

	// Dimensions is the expected vector dimension. Every returned vector
	// is validated against it before use; a mismatch is fatal.
	Dimensions int

	// Timeout is the per-request timeout.
	Timeout time.Duration

	// MaxRetries bounds transient-failure retries (backoff 2s/4s/8s).
	MaxRetries int

	// PoolSize sizes the HTTP connection pool.
	PoolSize int
}

// embedRequest is the wire format of the embedding call: a model name and
// the ordered chunk texts of one document.
type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embedResponse carries equal-length float vectors, one per input text.
type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}
