// Package chunk splits cleaned document text into token-bounded,
// overlapping chunks sized for the embedding model.
//
// Boundaries are computed with the embedding model's own BPE tokenization
// so a chunk never exceeds the model's input budget and overlaps stay
// meaningful. Chunking is deterministic: the same text and configuration
// always yield identical boundaries.
package chunk

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// Chunking defaults tuned for 256-token embedding inputs.
const (
	DefaultMaxTokens = 256
	DefaultOverlap   = 50
	DefaultEncoding  = "cl100k_base"
)

// Chunk is a single token span of a document. Transient: derived
// deterministically from the text, never persisted on its own.
type Chunk struct {
	Ordinal    int    // 0-indexed position within the document
	Text       string // decoded span text
	TokenCount int    // tokens in this span
}

// Chunker splits text into overlapping token windows.
type Chunker struct {
	maxTokens int
	overlap   int
	encoding  *tiktoken.Tiktoken
}

// Config configures a Chunker.
type Config struct {
	MaxTokens int    // window size in tokens (default 256)
	Overlap   int    // tokens shared between consecutive windows (default 50)
	Encoding  string // tiktoken encoding name (default cl100k_base)
}

// New creates a Chunker. Overlap must be smaller than MaxTokens so the
// window always advances.
func New(cfg Config) (*Chunker, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Overlap < 0 {
		cfg.Overlap = DefaultOverlap
	}
	if cfg.Encoding == "" {
		cfg.Encoding = DefaultEncoding
	}
	if cfg.Overlap >= cfg.MaxTokens {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than max tokens %d", cfg.Overlap, cfg.MaxTokens)
	}

	enc, err := tiktoken.GetEncoding(cfg.Encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to load tokenizer encoding %q: %w", cfg.Encoding, err)
	}

	return &Chunker{
		maxTokens: cfg.MaxTokens,
		overlap:   cfg.Overlap,
		encoding:  enc,
	}, nil
}

// Split chunks the text into overlapping token windows.
// Empty or whitespace-only input yields an empty slice and no error:
// the document is skipped, not failed.
func (c *Chunker) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return []Chunk{}
	}

	tokens := c.encoding.Encode(text, nil, nil)
	if len(tokens) == 0 {
		return []Chunk{}
	}

	if len(tokens) <= c.maxTokens {
		return []Chunk{{
			Ordinal:    0,
			Text:       text,
			TokenCount: len(tokens),
		}}
	}

	stride := c.maxTokens - c.overlap
	chunks := make([]Chunk, 0, (len(tokens)+stride-1)/stride)

	ordinal := 0
	for start := 0; start < len(tokens); start += stride {
		end := start + c.maxTokens
		if end > len(tokens) {
			end = len(tokens)
		}

		chunks = append(chunks, Chunk{
			Ordinal:    ordinal,
			Text:       c.encoding.Decode(tokens[start:end]),
			TokenCount: end - start,
		})
		ordinal++

		if end == len(tokens) {
			break
		}
	}

	return chunks
}

// MaxTokens returns the configured window size.
func (c *Chunker) MaxTokens() int { return c.maxTokens }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// CountTokens returns the token count of text under this chunker's encoding.
func (c *Chunker) CountTokens(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}
