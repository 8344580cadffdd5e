package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/netsift/netsift/internal/config"
)

func testConfig(t *testing.T, vectorEndpoint string) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Keyword.SnapshotPath = filepath.Join(t.TempDir(), "keyword.snapshot.json")
	if vectorEndpoint != "" {
		cfg.Vector.Endpoint = vectorEndpoint
	}
	cfg.Indexing.Workers = 2
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNew_BuildsAllComponents(t *testing.T) {
	s, err := New(context.Background(), testConfig(t, ""))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	assert.NotNil(t, s.Chunker)
	assert.NotNil(t, s.Embedder)
	assert.NotNil(t, s.Vectors)
	assert.NotNil(t, s.Keywords)
	assert.NotNil(t, s.Pipeline)
	assert.NotNil(t, s.Coordinator)
	assert.NotNil(t, s.Orchestrator)
}

func TestNew_RejectsInvalidChunking(t *testing.T) {
	cfg := testConfig(t, "")
	cfg.Chunking.Overlap = cfg.Chunking.MaxTokens

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
}

func TestStats_CombinesBothIndexes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"result": map[string]any{"points_count": 17}})
	}))
	defer srv.Close()

	s, err := New(context.Background(), testConfig(t, srv.URL))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	stats, err := s.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 17, stats.TotalChunks)
	assert.Zero(t, stats.TotalDocuments)
}

func TestClose_Idempotent(t *testing.T) {
	s, err := New(context.Background(), testConfig(t, ""))
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
}
