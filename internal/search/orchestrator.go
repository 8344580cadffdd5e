package search

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/netsift/netsift/internal/embed"
	sifterr "github.com/netsift/netsift/internal/errors"
	"github.com/netsift/netsift/internal/keyword"
	"github.com/netsift/netsift/internal/textproc"
	"github.com/netsift/netsift/internal/vector"
)

// VectorSearcher is the slice of the vector client the orchestrator needs.
type VectorSearcher interface {
	Search(ctx context.Context, queryVec []float32, limit int, filters vector.Filters) ([]vector.Hit, error)
}

// KeywordSearcher is the slice of the keyword index the orchestrator needs.
type KeywordSearcher interface {
	Search(ctx context.Context, query string, limit int, filters keyword.Filters) ([]keyword.Result, error)
}

// Config tunes query serving.
type Config struct {
	// Limit is the default result count when a request does not set one.
	Limit int

	// Overfetch multiplies the limit for hybrid sub-searches so fusion
	// has ranking signal beyond the final cut.
	Overfetch int

	// RRFK is the reciprocal rank fusion smoothing constant.
	RRFK int

	// DegradePartial serves hybrid queries from the surviving index when
	// exactly one branch fails. When false a partial failure fails the
	// query.
	DegradePartial bool
}

// DefaultConfig returns the standard query-serving configuration.
func DefaultConfig() Config {
	return Config{
		Limit:          DefaultLimit,
		Overfetch:      DefaultOverfetch,
		RRFK:           DefaultRRFK,
		DegradePartial: true,
	}
}

// Orchestrator executes queries against the configured indexes.
type Orchestrator struct {
	embedder embed.Embedder
	vectors  VectorSearcher
	keywords KeywordSearcher
	config   Config
}

// NewOrchestrator creates an orchestrator over the given components.
func NewOrchestrator(embedder embed.Embedder, vectors VectorSearcher, keywords KeywordSearcher, cfg Config) *Orchestrator {
	if cfg.Limit <= 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.Overfetch <= 0 {
		cfg.Overfetch = DefaultOverfetch
	}
	if cfg.RRFK <= 0 {
		cfg.RRFK = DefaultRRFK
	}
	return &Orchestrator{
		embedder: embedder,
		vectors:  vectors,
		keywords: keywords,
		config:   cfg,
	}
}

// Search runs one query in the requested mode.
func (o *Orchestrator) Search(ctx context.Context, req Request) (*Response, error) {
	query := textproc.CleanText(req.Query)
	if query == "" {
		return nil, sifterr.New(sifterr.ErrCodeInvalidQuery, "query is empty", nil)
	}

	mode := req.Mode
	if mode == "" {
		mode = ModeHybrid
	}
	limit := req.Limit
	if limit <= 0 {
		limit = o.config.Limit
	}

	var (
		resp *Response
		err  error
	)
	switch mode {
	case ModeSemantic:
		var list rankedList
		list, err = o.semanticList(ctx, query, limit*o.config.Overfetch, req.Filters)
		if err == nil {
			resp = &Response{Mode: mode, Results: truncate(dedupeNative(list), limit)}
		}

	case ModeKeyword:
		var list rankedList
		list, err = o.keywordList(ctx, query, limit*o.config.Overfetch, req.Filters)
		if err == nil {
			resp = &Response{Mode: mode, Results: truncate(dedupeNative(list), limit)}
		}

	case ModeHybrid:
		resp, err = o.hybrid(ctx, query, limit, req.Filters)

	default:
		return nil, sifterr.New(sifterr.ErrCodeInvalidMode, "unknown search mode "+string(mode), nil)
	}
	if err != nil {
		return nil, err
	}

	resp.Query = query
	resp.Total = len(resp.Results)
	return resp, nil
}

// hybrid runs both sub-searches concurrently and fuses their rankings.
func (o *Orchestrator) hybrid(ctx context.Context, query string, limit int, filters Filters) (*Response, error) {
	fetchLimit := limit * o.config.Overfetch

	var (
		semList rankedList
		kwList  rankedList
		semErr  error
		kwErr   error
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		semList, semErr = o.semanticList(gctx, query, fetchLimit, filters)
		return nil
	})
	g.Go(func() error {
		kwList, kwErr = o.keywordList(gctx, query, fetchLimit, filters)
		return nil
	})
	_ = g.Wait()

	switch {
	case semErr == nil && kwErr == nil:
		return &Response{
			Mode:    ModeHybrid,
			Results: truncate(fuse(o.config.RRFK, semList, kwList), limit),
		}, nil

	case semErr != nil && kwErr != nil:
		return nil, sifterr.New(sifterr.ErrCodeSearchFailed, "both index branches failed", semErr)

	case o.config.DegradePartial:
		survivor, failed := kwList, semErr
		if kwErr != nil {
			survivor, failed = semList, kwErr
		}
		slog.Warn("hybrid_search_degraded",
			slog.String("failed_branch", branchName(semErr)),
			slog.String("error", failed.Error()))
		return &Response{
			Mode:     ModeHybrid,
			Degraded: true,
			Results:  truncate(dedupeNative(survivor), limit),
		}, nil

	default:
		failed := semErr
		if failed == nil {
			failed = kwErr
		}
		return nil, sifterr.New(sifterr.ErrCodeSearchFailed, "index branch failed", failed)
	}
}

func branchName(semErr error) string {
	if semErr != nil {
		return "semantic"
	}
	return "keyword"
}

// semanticList embeds the query and ranks chunk hits from the vector store.
func (o *Orchestrator) semanticList(ctx context.Context, query string, limit int, filters Filters) (rankedList, error) {
	queryVec, err := o.embedder.Embed(ctx, query)
	if err != nil {
		return rankedList{}, err
	}
	hits, err := o.vectors.Search(ctx, queryVec, limit, filters.vector())
	if err != nil {
		return rankedList{}, err
	}

	list := rankedList{source: string(ModeSemantic), items: make([]candidate, 0, len(hits))}
	for _, h := range hits {
		list.items = append(list.items, candidate{
			Key:          fusionKey(h.Payload.CanonicalURL, h.Payload.URL, h.ID),
			URL:          h.Payload.URL,
			CanonicalURL: h.Payload.CanonicalURL,
			Domain:       h.Payload.Domain,
			Title:        h.Payload.Title,
			Text:         textproc.Snippet(h.Payload.Text, SnippetLength),
			Native:       float64(h.Score),
		})
	}
	return list, nil
}

// keywordList ranks whole documents from the BM25 index.
func (o *Orchestrator) keywordList(ctx context.Context, query string, limit int, filters Filters) (rankedList, error) {
	results, err := o.keywords.Search(ctx, query, limit, filters.keyword())
	if err != nil {
		return rankedList{}, err
	}

	list := rankedList{source: string(ModeKeyword), items: make([]candidate, 0, len(results))}
	for _, r := range results {
		list.items = append(list.items, candidate{
			Key:          fusionKey(r.Meta.CanonicalURL, r.Meta.URL, ""),
			URL:          r.Meta.URL,
			CanonicalURL: r.Meta.CanonicalURL,
			Domain:       r.Meta.Domain,
			Title:        r.Meta.Title,
			Text:         textproc.Snippet(r.Text, SnippetLength),
			Native:       r.Score,
		})
	}
	return list, nil
}

// dedupeNative collapses a single ranked list by fusion key, keeping each
// document's best rank and its native score.
func dedupeNative(list rankedList) []Result {
	seen := make(map[string]struct{}, len(list.items))
	out := make([]Result, 0, len(list.items))
	for _, c := range list.items {
		if _, dup := seen[c.Key]; dup {
			continue
		}
		seen[c.Key] = struct{}{}
		out = append(out, Result{
			URL:          c.URL,
			CanonicalURL: c.CanonicalURL,
			Domain:       c.Domain,
			Title:        c.Title,
			Snippet:      c.Text,
			Score:        c.Native,
			Sources:      []string{list.source},
		})
	}
	return out
}

func truncate(results []Result, limit int) []Result {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
