// Package service wires the application components together. All
// dependencies are constructed once at startup and injected explicitly;
// nothing is initialized lazily.
package service

import (
	"context"
	"fmt"

	"github.com/netsift/netsift/internal/chunk"
	"github.com/netsift/netsift/internal/config"
	"github.com/netsift/netsift/internal/embed"
	"github.com/netsift/netsift/internal/keyword"
	"github.com/netsift/netsift/internal/pipeline"
	"github.com/netsift/netsift/internal/search"
	"github.com/netsift/netsift/internal/vector"
)

// Services holds the constructed application components.
type Services struct {
	Config       *config.Config
	Chunker      *chunk.Chunker
	Embedder     embed.Embedder
	Vectors      *vector.Client
	Keywords     *keyword.Index
	Pipeline     *pipeline.Pipeline
	Coordinator  *pipeline.Coordinator
	Orchestrator *search.Orchestrator

	closers []func() error
}

// Stats summarizes the state of both indexes.
type Stats struct {
	TotalDocuments int     `json:"total_documents"`
	TotalChunks    int     `json:"total_chunks"`
	TermCount      int     `json:"term_count"`
	AvgDocLength   float64 `json:"avg_doc_length"`
}

// New constructs every component from the configuration. Construction
// does not touch the network; the first operation does.
func New(ctx context.Context, cfg *config.Config) (*Services, error) {
	s := &Services{Config: cfg}

	chunker, err := chunk.New(chunk.Config{
		MaxTokens: cfg.Chunking.MaxTokens,
		Overlap:   cfg.Chunking.Overlap,
		Encoding:  cfg.Chunking.Encoding,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chunker: %w", err)
	}
	s.Chunker = chunker

	client, err := embed.NewClient(embed.ClientConfig{
		Endpoint:   cfg.Embeddings.Endpoint,
		Model:      cfg.Embeddings.Model,
		Dimensions: cfg.Embeddings.Dimensions,
		Timeout:    cfg.Embeddings.Timeout,
		MaxRetries: cfg.Embeddings.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding client: %w", err)
	}
	s.Embedder = embed.NewCachedEmbedder(client, cfg.Embeddings.CacheSize)
	s.closers = append(s.closers, s.Embedder.Close)

	vectors, err := vector.NewClient(vector.ClientConfig{
		Endpoint:   cfg.Vector.Endpoint,
		Collection: cfg.Vector.Collection,
		APIKey:     cfg.Vector.APIKey,
		Dimensions: cfg.Embeddings.Dimensions,
		Timeout:    cfg.Vector.Timeout,
		MaxRetries: cfg.Vector.MaxRetries,
	})
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to create vector client: %w", err)
	}
	s.Vectors = vectors
	s.closers = append(s.closers, vectors.Close)

	keywords, err := keyword.New(keyword.Config{
		SnapshotPath: cfg.Keyword.SnapshotPath,
		K1:           cfg.Keyword.K1,
		B:            cfg.Keyword.B,
		LockTimeout:  cfg.Keyword.LockTimeout,
	})
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to create keyword index: %w", err)
	}
	s.Keywords = keywords

	s.Pipeline = pipeline.New(chunker, s.Embedder, vectors, keywords)

	coordinator, err := pipeline.NewCoordinator(s.Pipeline, cfg.Indexing.Workers)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("failed to create batch coordinator: %w", err)
	}
	s.Coordinator = coordinator
	s.closers = append(s.closers, coordinator.Close)

	s.Orchestrator = search.NewOrchestrator(s.Embedder, vectors, keywords, search.Config{
		Limit:          cfg.Search.DefaultLimit,
		Overfetch:      cfg.Search.Overfetch,
		RRFK:           cfg.Search.RRFConstant,
		DegradePartial: cfg.DegradePartial(),
	})

	return s, nil
}

// Stats collects index statistics. The chunk count comes from the vector
// store and fails when it is unreachable; keyword statistics are local.
func (s *Services) Stats(ctx context.Context) (Stats, error) {
	kw := s.Keywords.Stats()
	out := Stats{
		TotalDocuments: kw.DocumentCount,
		TermCount:      kw.TermCount,
		AvgDocLength:   kw.AvgDocLength,
	}

	chunks, err := s.Vectors.Count(ctx)
	if err != nil {
		return out, err
	}
	out.TotalChunks = chunks
	return out, nil
}

// Close releases components in reverse construction order.
func (s *Services) Close() error {
	return s.close()
}

func (s *Services) close() error {
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.closers = nil
	return firstErr
}
