package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cand(key string) candidate {
	return candidate{Key: key, URL: key, CanonicalURL: key}
}

func TestFuse_DocumentInBothListsAccumulates(t *testing.T) {
	sem := rankedList{source: "semantic", items: []candidate{cand("a"), cand("b")}}
	kw := rankedList{source: "keyword", items: []candidate{cand("c"), cand("a")}}

	results := fuse(60, sem, kw)
	require.Len(t, results, 3)

	// a: 1/61 + 1/62; b: 1/62; c: 1/61.
	assert.Equal(t, "a", results[0].CanonicalURL, "document in both lists wins")
	assert.InDelta(t, 1.0/61+1.0/62, results[0].Score, 1e-12)
	assert.ElementsMatch(t, []string{"semantic", "keyword"}, results[0].Sources)

	assert.Equal(t, "c", results[1].CanonicalURL)
	assert.InDelta(t, 1.0/61, results[1].Score, 1e-12)
	assert.Equal(t, "b", results[2].CanonicalURL)
	assert.InDelta(t, 1.0/62, results[2].Score, 1e-12)
}

func TestFuse_WithinListDuplicatesCountOnce(t *testing.T) {
	// Two chunks of the same document share a fusion key.
	sem := rankedList{source: "semantic", items: []candidate{cand("a"), cand("a"), cand("b")}}

	results := fuse(60, sem)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].CanonicalURL)
	assert.InDelta(t, 1.0/61, results[0].Score, 1e-12, "only the best rank contributes")
	assert.InDelta(t, 1.0/63, results[1].Score, 1e-12, "later entries keep their own rank")
}

func TestFuse_DeterministicTieBreak(t *testing.T) {
	sem := rankedList{source: "semantic", items: []candidate{cand("b")}}
	kw := rankedList{source: "keyword", items: []candidate{cand("a")}}

	for i := 0; i < 10; i++ {
		results := fuse(60, sem, kw)
		require.Len(t, results, 2)
		assert.Equal(t, "a", results[0].CanonicalURL, "equal scores break by key")
		assert.Equal(t, "b", results[1].CanonicalURL)
	}
}

func TestFuse_Empty(t *testing.T) {
	assert.Empty(t, fuse(60))
	assert.Empty(t, fuse(60, rankedList{source: "semantic"}, rankedList{source: "keyword"}))
}

func TestFusionKey_Precedence(t *testing.T) {
	assert.Equal(t, "canon", fusionKey("canon", "raw", "id"))
	assert.Equal(t, "raw", fusionKey("", "raw", "id"))
	assert.Equal(t, "id", fusionKey("", "", "id"))
}
