package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sifterr "github.com/netsift/netsift/internal/errors"
)

func TestNewConfig_DefaultsValidate(t *testing.T) {
	cfg := NewConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 256, cfg.Chunking.MaxTokens)
	assert.Equal(t, 50, cfg.Chunking.Overlap)
	assert.Equal(t, 768, cfg.Embeddings.Dimensions)
	assert.Equal(t, "netsift_chunks", cfg.Vector.Collection)
	assert.Equal(t, 60, cfg.Search.RRFConstant)
	assert.True(t, cfg.DegradePartial())
	assert.Equal(t, 30*time.Second, cfg.Keyword.LockTimeout)
}

func TestLoad_ProjectFileOverridesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	content := `
chunking:
  max_tokens: 512
  overlap: 64
embeddings:
  model: custom-embed
  dimensions: 1024
vector:
  collection: my_chunks
search:
  rrf_constant: 90
  degrade_partial: false
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "netsift.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, 512, cfg.Chunking.MaxTokens)
	assert.Equal(t, 64, cfg.Chunking.Overlap)
	assert.Equal(t, "custom-embed", cfg.Embeddings.Model)
	assert.Equal(t, 1024, cfg.Embeddings.Dimensions)
	assert.Equal(t, "my_chunks", cfg.Vector.Collection)
	assert.Equal(t, 90, cfg.Search.RRFConstant)
	assert.False(t, cfg.DegradePartial())

	// Untouched sections keep their defaults.
	assert.Equal(t, "http://localhost:6333", cfg.Vector.Endpoint)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	content := "embeddings:\n  endpoint: http://from-file:8876\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "netsift.yaml"), []byte(content), 0o644))

	t.Setenv("NETSIFT_EMBEDDINGS_ENDPOINT", "http://from-env:8876")
	t.Setenv("NETSIFT_LOG_LEVEL", "debug")
	t.Setenv("NETSIFT_WORKERS", "3")

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "http://from-env:8876", cfg.Embeddings.Endpoint)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 3, cfg.Indexing.Workers)
}

func TestLoad_ExplicitZeroBSurvivesMerge(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	content := "keyword:\n  b: 0\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "netsift.yaml"), []byte(content), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	require.NotNil(t, cfg.Keyword.B)
	assert.Equal(t, 0.0, *cfg.Keyword.B, "explicit b: 0 must not fall back to the default")

	// A file that never mentions b keeps the default.
	cfg2, err := Load(t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, cfg2.Keyword.B)
	assert.Equal(t, 0.75, *cfg2.Keyword.B)
}

func TestLoad_NoFilesUsesDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, NewConfig().Embeddings.Endpoint, cfg.Embeddings.Endpoint)
}

func TestLoad_MalformedYAML(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "netsift.yaml"), []byte("chunking: ["), 0o644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Equal(t, sifterr.ErrCodeConfigInvalid, sifterr.GetCode(err))
}

func TestLoadFile_MissingFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Equal(t, sifterr.ErrCodeConfigNotFound, sifterr.GetCode(err))
}

func TestValidate_Rejections(t *testing.T) {
	cases := map[string]func(*Config){
		"overlap >= max_tokens": func(c *Config) { c.Chunking.Overlap = c.Chunking.MaxTokens },
		"zero dimensions":       func(c *Config) { c.Embeddings.Dimensions = 0 },
		"empty vector endpoint": func(c *Config) { c.Vector.Endpoint = "" },
		"negative k1":           func(c *Config) { c.Keyword.K1 = -1 },
		"b out of range":        func(c *Config) { b := 1.5; c.Keyword.B = &b },
		"zero rrf constant":     func(c *Config) { c.Search.RRFConstant = 0 },
		"unknown log level":     func(c *Config) { c.Logging.Level = "loud" },
		"non-positive workers":  func(c *Config) { c.Indexing.Workers = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := NewConfig()
			mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Equal(t, sifterr.ErrCodeConfigInvalid, sifterr.GetCode(err))
		})
	}
}
