package embed

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingEmbedder is a deterministic fake that counts upstream calls.
type countingEmbedder struct {
	dims       int
	embedCalls int
	batchCalls int
}

func (f *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.embedCalls++
	vec := make([]float32, f.dims)
	vec[0] = float32(len(text))
	return vec, nil
}

func (f *countingEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	out := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, f.dims)
		vec[0] = float32(len(text))
		out[i] = vec
	}
	return out, nil
}

func (f *countingEmbedder) Dimensions() int   { return f.dims }
func (f *countingEmbedder) ModelName() string { return "fake" }
func (f *countingEmbedder) Close() error      { return nil }

func TestCachedEmbedder_RepeatQueryHitsCache(t *testing.T) {
	inner := &countingEmbedder{dims: 4}
	c := NewCachedEmbedder(inner, 10)

	first, err := c.Embed(context.Background(), "database configuration")
	require.NoError(t, err)

	second, err := c.Embed(context.Background(), "database configuration")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.embedCalls)
}

func TestCachedEmbedder_BatchOnlyEmbedsMisses(t *testing.T) {
	inner := &countingEmbedder{dims: 4}
	c := NewCachedEmbedder(inner, 10)

	_, err := c.Embed(context.Background(), "alpha")
	require.NoError(t, err)

	vecs, err := c.EmbedBatch(context.Background(), []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, 1, inner.batchCalls)

	// Second pass is fully cached.
	_, err = c.EmbedBatch(context.Background(), []string{"alpha", "beta", "gamma"})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.batchCalls)
}

func TestCachedEmbedder_EmptyBatch(t *testing.T) {
	inner := &countingEmbedder{dims: 4}
	c := NewCachedEmbedder(inner, 10)

	vecs, err := c.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Zero(t, inner.batchCalls)
}
