package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	sifterr "github.com/netsift/netsift/internal/errors"
)

// DefaultWorkers is the batch concurrency when none is configured.
const DefaultWorkers = 8

// BatchSummary aggregates the per-document outcomes of one batch.
type BatchSummary struct {
	Total    int
	Indexed  int
	Skipped  int
	Failed   int
	Degraded int // indexed but missing from the keyword index
}

// Coordinator fans a batch of documents across a bounded worker pool.
// Results always come back position-aligned with the input: one Result per
// document, failures included, so callers can report per-URL outcomes.
type Coordinator struct {
	pipeline *Pipeline
	pool     *ants.Pool
}

// NewCoordinator creates a coordinator with its own worker pool.
func NewCoordinator(p *Pipeline, workers int) (*Coordinator, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	pool, err := ants.NewPool(workers)
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &Coordinator{pipeline: p, pool: pool}, nil
}

// IndexBatch indexes all documents concurrently and returns one Result per
// input document, in input order. A panicking worker is converted into a
// failed Result for its document; the rest of the batch proceeds.
func (c *Coordinator) IndexBatch(ctx context.Context, docs []Document) ([]Result, error) {
	results := make([]Result, len(docs))
	if len(docs) == 0 {
		return results, nil
	}

	var wg sync.WaitGroup
	for i := range docs {
		i := i
		wg.Add(1)
		task := func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("pipeline_worker_panic",
						slog.String("url", docs[i].URL),
						slog.Any("panic", r))
					results[i] = Result{
						URL: docs[i].URL,
						Err: sifterr.New(sifterr.ErrCodeInternal, fmt.Sprintf("worker panic: %v", r), nil),
					}
				}
			}()
			results[i] = c.pipeline.IndexOne(ctx, docs[i])
		}
		if err := c.pool.Submit(task); err != nil {
			wg.Done()
			results[i] = Result{
				URL: docs[i].URL,
				Err: sifterr.New(sifterr.ErrCodeInternal, "worker pool rejected task", err),
			}
		}
	}
	wg.Wait()

	summary := Summarize(results)
	slog.Info("batch_indexed",
		slog.Int("total", summary.Total),
		slog.Int("indexed", summary.Indexed),
		slog.Int("skipped", summary.Skipped),
		slog.Int("failed", summary.Failed),
		slog.Int("degraded", summary.Degraded))

	return results, nil
}

// Summarize folds per-document results into batch counters.
func Summarize(results []Result) BatchSummary {
	s := BatchSummary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Skipped:
			s.Skipped++
		case r.Success && r.KeywordIndexed:
			s.Indexed++
		case r.Success:
			s.Indexed++
			s.Degraded++
		default:
			s.Failed++
		}
	}
	return s
}

// Close releases the worker pool.
func (c *Coordinator) Close() error {
	c.pool.Release()
	return nil
}
