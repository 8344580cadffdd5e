// Package keyword provides the in-process BM25 keyword index over whole
// document text.
//
// The corpus is held as three position-aligned sequences (raw texts,
// tokenized texts, metadata); the invariant is that all three have equal
// length at all times. A derived BM25 model is rebuilt in full on every
// corpus change, acceptable for the bounded corpus sizes this index
// serves. Readers take a shared lock, writers an exclusive one. Snapshot
// persistence is serialized per process and guarded by a cross-process
// advisory file lock, so writers stay mutually exclusive end to end.
package keyword

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

// BM25 defaults.
const (
	DefaultK1          = 1.2
	DefaultB           = 0.75
	DefaultLockTimeout = 30 * time.Second
)

// DocumentMeta is the metadata stored position-aligned with each document.
type DocumentMeta struct {
	URL          string `json:"url"`
	CanonicalURL string `json:"canonical_url"`
	Domain       string `json:"domain"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	Language     string `json:"language,omitempty"`
	Country      string `json:"country,omitempty"`
	Mobile       bool   `json:"mobile"`
	SessionID    string `json:"session_id,omitempty"`
}

// Filters are exact-match constraints applied before the top-k cut.
// Zero values mean "no constraint".
type Filters struct {
	Domain   string
	Language string
	Country  string
	Mobile   *bool
}

// matches reports whether meta satisfies every set constraint.
func (f Filters) matches(meta DocumentMeta) bool {
	if f.Domain != "" && !strings.EqualFold(f.Domain, meta.Domain) {
		return false
	}
	if f.Language != "" && !strings.EqualFold(f.Language, meta.Language) {
		return false
	}
	if f.Country != "" && !strings.EqualFold(f.Country, meta.Country) {
		return false
	}
	if f.Mobile != nil && *f.Mobile != meta.Mobile {
		return false
	}
	return true
}

// Result is a single keyword search hit.
type Result struct {
	DocIndex int
	Score    float64
	Text     string
	Meta     DocumentMeta
}

// Stats describes the index corpus.
type Stats struct {
	DocumentCount int
	TermCount     int
	AvgDocLength  float64
}

// Config configures the keyword index.
type Config struct {
	// SnapshotPath is the on-disk snapshot file. Empty disables persistence
	// (in-memory index, used by tests).
	SnapshotPath string

	// K1 is the term frequency saturation parameter (default 1.2).
	K1 float64

	// B is the length normalization parameter (default 0.75). Nil means
	// unset; an explicit zero disables length normalization.
	B *float64

	// LockTimeout bounds the wait for the snapshot advisory lock
	// (default 30s). A timed-out write is abandoned and reported
	// non-fatal; in-memory state keeps the document.
	LockTimeout time.Duration

	// StopWords overrides DefaultStopWords when non-nil.
	StopWords []string
}

// bm25Model is the derived scoring state, recomputed in full whenever the
// corpus changes. Readers only ever see a fully built model.
type bm25Model struct {
	df       map[string]int   // term -> number of docs containing it
	termFreq []map[string]int // per-doc term frequencies
	docLen   []int            // per-doc token counts
	avgdl    float64
}

// Index is the in-process BM25 keyword index.
type Index struct {
	mu sync.RWMutex

	// Three position-aligned sequences; equal length at all times.
	texts  []string
	tokens [][]string
	metas  []DocumentMeta

	model bm25Model

	// persistMu serializes the copy+lock+write+rename persistence
	// sequence so in-process writers never interleave on the shared
	// advisory lock handle.
	persistMu sync.Mutex

	k1        float64
	b         float64
	config    Config
	stopWords map[string]struct{}
	snapshot  *snapshotter
}

// New creates a keyword index and loads the most recent snapshot.
// A missing or corrupt snapshot starts an empty corpus rather than
// failing startup.
func New(cfg Config) (*Index, error) {
	k1 := cfg.K1
	if k1 <= 0 {
		k1 = DefaultK1
	}
	// B is a pointer so an explicit zero (no length normalization) is
	// distinguishable from unset.
	b := DefaultB
	if cfg.B != nil {
		b = *cfg.B
	}
	if b < 0 || b > 1 {
		b = DefaultB
	}
	if cfg.LockTimeout <= 0 {
		cfg.LockTimeout = DefaultLockTimeout
	}
	stopWords := cfg.StopWords
	if stopWords == nil {
		stopWords = DefaultStopWords
	}

	idx := &Index{
		k1:        k1,
		b:         b,
		config:    cfg,
		stopWords: BuildStopWordMap(stopWords),
	}

	if cfg.SnapshotPath != "" {
		idx.snapshot = newSnapshotter(cfg.SnapshotPath, cfg.LockTimeout)
		idx.loadSnapshot()
	}

	idx.rebuildModelLocked()
	return idx, nil
}

// loadSnapshot restores the corpus from disk, tolerating absence and
// corruption.
func (idx *Index) loadSnapshot() {
	snap, err := idx.snapshot.load()
	if err != nil {
		slog.Warn("keyword_snapshot_unusable",
			slog.String("path", idx.config.SnapshotPath),
			slog.String("error", err.Error()))
		return
	}
	if snap == nil {
		return // no snapshot yet
	}

	idx.texts = snap.Texts
	idx.tokens = snap.Tokens
	idx.metas = snap.Metas
	slog.Info("keyword_snapshot_loaded",
		slog.String("path", idx.config.SnapshotPath),
		slog.Int("documents", len(snap.Texts)))
}

// IndexDocument appends a document to the corpus, rebuilds the scoring
// model, and persists a snapshot.
//
// The in-memory append and rebuild run under the exclusive corpus lock
// and cannot fail. Persistence runs under a separate persist mutex so
// concurrent writers serialize through the advisory file lock one at a
// time; the corpus is re-copied under that mutex, so whichever writer
// persists last always writes the newest state. A lock timeout or IO
// error is returned as a non-fatal coded error: the in-memory state
// already reflects the new document, the on-disk snapshot is merely
// stale.
func (idx *Index) IndexDocument(ctx context.Context, text string, meta DocumentMeta) error {
	docTokens := Tokenize(text, idx.stopWords)

	idx.mu.Lock()
	idx.texts = append(idx.texts, text)
	idx.tokens = append(idx.tokens, docTokens)
	idx.metas = append(idx.metas, meta)
	idx.rebuildModelLocked()
	idx.mu.Unlock()

	if idx.snapshot == nil {
		return nil
	}

	idx.persistMu.Lock()
	defer idx.persistMu.Unlock()

	idx.mu.RLock()
	snap := idx.copyCorpusLocked()
	idx.mu.RUnlock()

	if err := idx.snapshot.persist(ctx, snap); err != nil {
		slog.Warn("keyword_snapshot_persist_failed",
			slog.String("url", meta.URL),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}

// copyCorpusLocked copies the three sequences so persistence can run
// outside the lock without racing later writers.
func (idx *Index) copyCorpusLocked() *snapshotData {
	snap := &snapshotData{
		Version: snapshotVersion,
		K1:      idx.k1,
		B:       idx.b,
		Texts:   make([]string, len(idx.texts)),
		Tokens:  make([][]string, len(idx.tokens)),
		Metas:   make([]DocumentMeta, len(idx.metas)),
	}
	copy(snap.Texts, idx.texts)
	copy(snap.Tokens, idx.tokens)
	copy(snap.Metas, idx.metas)
	return snap
}

// rebuildModelLocked recomputes the full BM25 model. Caller holds the
// write lock (or has exclusive access during construction).
func (idx *Index) rebuildModelLocked() {
	model := bm25Model{
		df:       make(map[string]int),
		termFreq: make([]map[string]int, len(idx.tokens)),
		docLen:   make([]int, len(idx.tokens)),
	}

	totalLen := 0
	for i, docTokens := range idx.tokens {
		tf := make(map[string]int, len(docTokens))
		for _, term := range docTokens {
			tf[term]++
		}
		for term := range tf {
			model.df[term]++
		}
		model.termFreq[i] = tf
		model.docLen[i] = len(docTokens)
		totalLen += len(docTokens)
	}

	if len(idx.tokens) > 0 {
		model.avgdl = float64(totalLen) / float64(len(idx.tokens))
	}
	idx.model = model
}

// Search scores the query against the corpus with BM25 and returns the
// top-k results after metadata filtering. Many readers may search
// concurrently; none ever observes a mid-rebuild model.
func (idx *Index) Search(ctx context.Context, query string, limit int, filters Filters) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return []Result{}, nil
	}

	queryTerms := Tokenize(query, idx.stopWords)
	if len(queryTerms) == 0 {
		return []Result{}, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := len(idx.texts)
	if n == 0 {
		return []Result{}, nil
	}

	results := make([]Result, 0, limit)
	for i := 0; i < n; i++ {
		if !filters.matches(idx.metas[i]) {
			continue
		}
		score := idx.scoreLocked(queryTerms, i)
		if score <= 0 {
			continue
		}
		results = append(results, Result{
			DocIndex: i,
			Score:    score,
			Text:     idx.texts[i],
			Meta:     idx.metas[i],
		})
	}

	sort.Slice(results, func(a, b int) bool {
		if results[a].Score != results[b].Score {
			return results[a].Score > results[b].Score
		}
		// Deterministic tie-break by insertion order.
		return results[a].DocIndex < results[b].DocIndex
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// scoreLocked computes the BM25 score of document i for the query terms.
// Caller holds at least the read lock.
func (idx *Index) scoreLocked(queryTerms []string, i int) float64 {
	n := float64(len(idx.texts))
	tf := idx.model.termFreq[i]
	dl := float64(idx.model.docLen[i])
	k1 := idx.k1
	b := idx.b

	var score float64
	for _, term := range queryTerms {
		freq := float64(tf[term])
		if freq == 0 {
			continue
		}
		df := float64(idx.model.df[term])
		idf := math.Log(1 + (n-df+0.5)/(df+0.5))
		norm := freq * (k1 + 1) / (freq + k1*(1-b+b*dl/idx.model.avgdl))
		score += idf * norm
	}
	return score
}

// Stats returns corpus statistics.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	return Stats{
		DocumentCount: len(idx.texts),
		TermCount:     len(idx.model.df),
		AvgDocLength:  idx.model.avgdl,
	}
}

// Len returns the number of documents in the corpus.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.texts)
}

// checkAlignment verifies the three-sequence invariant. Exposed for tests.
func (idx *Index) checkAlignment() error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if len(idx.texts) != len(idx.tokens) || len(idx.texts) != len(idx.metas) {
		return fmt.Errorf("sequence misalignment: texts=%d tokens=%d metas=%d",
			len(idx.texts), len(idx.tokens), len(idx.metas))
	}
	return nil
}
