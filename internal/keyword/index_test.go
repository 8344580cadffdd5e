package keyword

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sifterr "github.com/netsift/netsift/internal/errors"
)

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func isLockTimeout(err error) bool {
	return sifterr.GetCode(err) == sifterr.ErrCodeLockTimeout
}

func newMemoryIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(Config{})
	require.NoError(t, err)
	return idx
}

func metaFor(url string) DocumentMeta {
	return DocumentMeta{
		URL:          url,
		CanonicalURL: url,
		Domain:       "example.com",
		Language:     "en",
	}
}

func TestIndexDocument_AlignmentInvariant(t *testing.T) {
	idx := newMemoryIndex(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := idx.IndexDocument(ctx, fmt.Sprintf("document number %d about databases", i),
			metaFor(fmt.Sprintf("https://example.com/%d", i)))
		require.NoError(t, err)
		require.NoError(t, idx.checkAlignment())
	}
	assert.Equal(t, 5, idx.Len())
}

func TestSearch_RanksMatchingDocumentsHigher(t *testing.T) {
	idx := newMemoryIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexDocument(ctx,
		"postgres database configuration and tuning guide for production databases",
		metaFor("https://example.com/db")))
	require.NoError(t, idx.IndexDocument(ctx,
		"gardening tips for spring tomatoes and herbs",
		metaFor("https://example.com/garden")))
	require.NoError(t, idx.IndexDocument(ctx,
		"database backup strategies",
		metaFor("https://example.com/backup")))

	results, err := idx.Search(ctx, "database configuration", 10, Filters{})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, "https://example.com/db", results[0].Meta.URL,
		"document matching both query terms ranks first")
	for _, r := range results {
		assert.NotEqual(t, "https://example.com/garden", r.Meta.URL,
			"non-matching document must not appear")
	}

	// Scores strictly non-increasing.
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestSearch_MetadataFilters(t *testing.T) {
	idx := newMemoryIndex(t)
	ctx := context.Background()

	en := metaFor("https://example.com/en")
	en.Language = "en"
	de := metaFor("https://example.com/de")
	de.Language = "de"
	mobile := metaFor("https://m.example.com/x")
	mobile.Mobile = true

	require.NoError(t, idx.IndexDocument(ctx, "shared topic text about routers", en))
	require.NoError(t, idx.IndexDocument(ctx, "shared topic text about routers", de))
	require.NoError(t, idx.IndexDocument(ctx, "shared topic text about routers", mobile))

	results, err := idx.Search(ctx, "routers", 10, Filters{Language: "de"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://example.com/de", results[0].Meta.URL)

	isMobile := true
	results, err = idx.Search(ctx, "routers", 10, Filters{Mobile: &isMobile})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "https://m.example.com/x", results[0].Meta.URL)
}

func TestSearch_EmptyQueryAndEmptyCorpus(t *testing.T) {
	idx := newMemoryIndex(t)
	ctx := context.Background()

	results, err := idx.Search(ctx, "anything", 10, Filters{})
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, idx.IndexDocument(ctx, "some text", metaFor("https://example.com/a")))

	results, err = idx.Search(ctx, "", 10, Filters{})
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = idx.Search(ctx, "the and of", 10, Filters{})
	require.NoError(t, err)
	assert.Empty(t, results, "stop-word-only query matches nothing")
}

func TestSnapshot_RoundTripReproducesCorpusAndTopK(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keyword.snapshot.json")
	ctx := context.Background()

	first, err := New(Config{SnapshotPath: path})
	require.NoError(t, err)

	docs := []string{
		"postgres database configuration for production",
		"redis cache eviction policies explained",
		"database schema migration checklist",
		"kubernetes ingress controller setup",
	}
	for i, text := range docs {
		require.NoError(t, first.IndexDocument(ctx, text,
			metaFor(fmt.Sprintf("https://example.com/%d", i))))
	}
	wantResults, err := first.Search(ctx, "database configuration", 3, Filters{})
	require.NoError(t, err)

	// Reload from the snapshot.
	second, err := New(Config{SnapshotPath: path})
	require.NoError(t, err)
	require.NoError(t, second.checkAlignment())
	assert.Equal(t, first.Len(), second.Len(), "corpus length survives round trip")

	gotResults, err := second.Search(ctx, "database configuration", 3, Filters{})
	require.NoError(t, err)
	require.Equal(t, len(wantResults), len(gotResults))
	for i := range wantResults {
		assert.Equal(t, wantResults[i].Meta.URL, gotResults[i].Meta.URL)
		assert.InDelta(t, wantResults[i].Score, gotResults[i].Score, 1e-9)
	}
}

func TestSnapshot_MissingOrCorruptStartsEmpty(t *testing.T) {
	dir := t.TempDir()

	// Missing file.
	idx, err := New(Config{SnapshotPath: filepath.Join(dir, "missing.json")})
	require.NoError(t, err)
	assert.Zero(t, idx.Len())

	// Corrupt file.
	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, writeFile(corrupt, "{not json"))
	idx, err = New(Config{SnapshotPath: corrupt})
	require.NoError(t, err, "corrupt snapshot must not fail startup")
	assert.Zero(t, idx.Len())

	// Misaligned sequences are treated as corrupt.
	misaligned := filepath.Join(dir, "misaligned.json")
	require.NoError(t, writeFile(misaligned,
		`{"version":1,"k1":1.2,"b":0.75,"texts":["a","b"],"tokens":[["a"]],"metas":[{"url":"x"}]}`))
	idx, err = New(Config{SnapshotPath: misaligned})
	require.NoError(t, err)
	assert.Zero(t, idx.Len())
}

func TestIndexDocument_LockTimeoutIsNonFatalAndPreservesState(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keyword.snapshot.json")
	ctx := context.Background()

	idx, err := New(Config{SnapshotPath: path, LockTimeout: 300 * time.Millisecond})
	require.NoError(t, err)
	require.NoError(t, idx.IndexDocument(ctx, "first document about caching", metaFor("https://example.com/1")))

	// A foreign holder keeps the advisory lock past the timeout.
	holder := newSnapshotter(path, time.Second)
	locked, err := holder.lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = holder.lock.Unlock() }()

	start := time.Now()
	err = idx.IndexDocument(ctx, "second document about sharding", metaFor("https://example.com/2"))
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.True(t, isLockTimeout(err), "expected lock-timeout error, got %v", err)
	assert.Less(t, elapsed, 2*time.Second, "write must be abandoned within ~timeout")

	// In-memory state reflects the new document despite the stale snapshot.
	assert.Equal(t, 2, idx.Len())
	require.NoError(t, idx.checkAlignment())

	results, err := idx.Search(ctx, "sharding", 10, Filters{})
	require.NoError(t, err)
	require.Len(t, results, 1, "index remains queryable after an abandoned write")
}

func TestIndexDocument_ConcurrentWritersPersistAllDocuments(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keyword.snapshot.json")
	ctx := context.Background()

	idx, err := New(Config{SnapshotPath: path})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 5; i++ {
				err := idx.IndexDocument(ctx, fmt.Sprintf("writer %d doc %d about persistence", w, i),
					metaFor(fmt.Sprintf("https://example.com/%d-%d", w, i)))
				assert.NoError(t, err)
			}
		}(w)
	}
	wg.Wait()

	// The advisory lock must be free once every write has returned.
	foreign := newSnapshotter(path, time.Second)
	locked, err := foreign.lock.TryLock()
	require.NoError(t, err)
	require.True(t, locked, "advisory lock must be released after writes complete")
	require.NoError(t, foreign.lock.Unlock())

	// The on-disk snapshot holds every document, none silently dropped
	// by an out-of-order overwrite.
	reloaded, err := New(Config{SnapshotPath: path})
	require.NoError(t, err)
	assert.Equal(t, 20, reloaded.Len())
	require.NoError(t, reloaded.checkAlignment())
}

func TestIndexDocument_PersistenceIsSerializedPerWriter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "keyword.snapshot.json")
	ctx := context.Background()

	idx, err := New(Config{SnapshotPath: path})
	require.NoError(t, err)

	// Simulate an in-flight writer mid-persist.
	idx.persistMu.Lock()

	done := make(chan error, 1)
	go func() {
		done <- idx.IndexDocument(ctx, "document about write ordering", metaFor("https://example.com/w"))
	}()

	select {
	case <-done:
		idx.persistMu.Unlock()
		t.Fatal("second writer must wait for the in-flight persistence to finish")
	case <-time.After(100 * time.Millisecond):
	}

	idx.persistMu.Unlock()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("writer never completed after persistence was released")
	}

	reloaded, err := New(Config{SnapshotPath: path})
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.Len())
}

func TestNew_ExplicitZeroBDisablesLengthNormalization(t *testing.T) {
	ctx := context.Background()
	b := 0.0
	idx, err := New(Config{B: &b})
	require.NoError(t, err)

	// One occurrence of the term in a short and in a much longer document.
	require.NoError(t, idx.IndexDocument(ctx, "alpha", metaFor("https://example.com/short")))
	require.NoError(t, idx.IndexDocument(ctx,
		"alpha beta gamma delta epsilon zeta eta theta iota kappa",
		metaFor("https://example.com/long")))

	results, err := idx.Search(ctx, "alpha", 10, Filters{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.InDelta(t, results[0].Score, results[1].Score, 1e-9,
		"with b=0 document length must not affect the score")
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	idx := newMemoryIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexDocument(ctx, "seed document about indexing", metaFor("https://example.com/seed")))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				_ = idx.IndexDocument(ctx, fmt.Sprintf("writer %d doc %d about indexing engines", w, i),
					metaFor(fmt.Sprintf("https://example.com/%d-%d", w, i)))
			}
		}(w)
	}
	for r := 0; r < 8; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				results, err := idx.Search(ctx, "indexing", 5, Filters{})
				assert.NoError(t, err)
				for j := 1; j < len(results); j++ {
					assert.GreaterOrEqual(t, results[j-1].Score, results[j].Score)
				}
			}
		}()
	}
	wg.Wait()

	require.NoError(t, idx.checkAlignment())
	assert.Equal(t, 81, idx.Len())
}

func TestStats(t *testing.T) {
	idx := newMemoryIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.IndexDocument(ctx, "alpha beta gamma", metaFor("https://example.com/1")))
	require.NoError(t, idx.IndexDocument(ctx, "alpha delta", metaFor("https://example.com/2")))

	stats := idx.Stats()
	assert.Equal(t, 2, stats.DocumentCount)
	assert.Equal(t, 4, stats.TermCount)
	assert.InDelta(t, 2.5, stats.AvgDocLength, 1e-9)
}
