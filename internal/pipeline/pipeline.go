// Package pipeline turns scraped documents into indexed chunks: clean,
// chunk, embed, upsert into the vector store, then mirror the whole text
// into the keyword index.
//
// Failure semantics per document: embedding and vector upsert failures are
// fatal for that document, a keyword index failure after a successful
// upsert is tolerated and reported. One document never sinks a batch.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/netsift/netsift/internal/chunk"
	"github.com/netsift/netsift/internal/embed"
	sifterr "github.com/netsift/netsift/internal/errors"
	"github.com/netsift/netsift/internal/keyword"
	"github.com/netsift/netsift/internal/textproc"
	"github.com/netsift/netsift/internal/vector"
)

// Document is one scraped page handed to the pipeline.
type Document struct {
	URL         string
	ResolvedURL string // final URL after redirects, when known
	Title       string
	Description string
	Text        string
	Language    string
	Country     string
	Mobile      bool
	SessionID   string
}

// Result reports the outcome of indexing one document.
type Result struct {
	URL            string
	Success        bool
	Skipped        bool // empty after cleaning, nothing to index
	ChunksIndexed  int
	KeywordIndexed bool
	Err            error
}

// VectorStore is the slice of the vector client the pipeline needs.
type VectorStore interface {
	Upsert(ctx context.Context, points []vector.Point) error
}

// KeywordWriter is the slice of the keyword index the pipeline needs.
type KeywordWriter interface {
	IndexDocument(ctx context.Context, text string, meta keyword.DocumentMeta) error
}

// Pipeline indexes single documents. Safe for concurrent use; all state
// lives in the injected components.
type Pipeline struct {
	chunker  *chunk.Chunker
	embedder embed.Embedder
	vectors  VectorStore
	keywords KeywordWriter
}

// New creates a pipeline over the given components.
func New(chunker *chunk.Chunker, embedder embed.Embedder, vectors VectorStore, keywords KeywordWriter) *Pipeline {
	return &Pipeline{
		chunker:  chunker,
		embedder: embedder,
		vectors:  vectors,
		keywords: keywords,
	}
}

// IndexOne runs the full pipeline for a single document.
func (p *Pipeline) IndexOne(ctx context.Context, doc Document) Result {
	res := Result{URL: doc.URL}

	rawURL := doc.ResolvedURL
	if rawURL == "" {
		rawURL = doc.URL
	}
	canonical, err := textproc.CanonicalURL(rawURL)
	if err != nil {
		res.Err = err
		return res
	}

	text := textproc.CleanText(doc.Text)
	if text == "" {
		res.Success = true
		res.Skipped = true
		slog.Debug("document_skipped_empty", slog.String("url", doc.URL))
		return res
	}

	chunks := p.chunker.Split(text)
	if len(chunks) == 0 {
		res.Success = true
		res.Skipped = true
		return res
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Text
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		res.Err = err
		return res
	}
	if len(vectors) != len(chunks) {
		res.Err = sifterr.New(sifterr.ErrCodeEmbedFailed,
			fmt.Sprintf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks)), nil)
		return res
	}

	domain := textproc.Host(canonical)
	points := make([]vector.Point, len(chunks))
	for i, ch := range chunks {
		points[i] = vector.Point{
			ID:     vector.PointID(canonical, ch.Ordinal),
			Vector: vectors[i],
			Payload: vector.Payload{
				URL:          doc.URL,
				CanonicalURL: canonical,
				Domain:       domain,
				Ordinal:      ch.Ordinal,
				TokenCount:   ch.TokenCount,
				Language:     doc.Language,
				Country:      doc.Country,
				Mobile:       doc.Mobile,
				Title:        doc.Title,
				Description:  doc.Description,
				Text:         ch.Text,
			},
		}
	}
	if err := p.vectors.Upsert(ctx, points); err != nil {
		res.Err = err
		return res
	}
	res.ChunksIndexed = len(points)

	meta := keyword.DocumentMeta{
		URL:          doc.URL,
		CanonicalURL: canonical,
		Domain:       domain,
		Title:        doc.Title,
		Description:  doc.Description,
		Language:     doc.Language,
		Country:      doc.Country,
		Mobile:       doc.Mobile,
		SessionID:    doc.SessionID,
	}
	if err := p.keywords.IndexDocument(ctx, text, meta); err != nil {
		// Vectors are already durable; the keyword miss only narrows recall
		// for this document.
		slog.Warn("keyword_index_failed",
			slog.String("url", doc.URL),
			slog.String("error", err.Error()))
		res.Success = true
		res.Err = err
		return res
	}

	res.Success = true
	res.KeywordIndexed = true
	return res
}
