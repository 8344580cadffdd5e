// Package config loads the netsift configuration. Values apply in order
// of increasing precedence: hardcoded defaults, the user config file,
// the project config file, then NETSIFT_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	sifterr "github.com/netsift/netsift/internal/errors"
)

// Config is the complete netsift configuration.
type Config struct {
	Version    int              `yaml:"version" json:"version"`
	Chunking   ChunkingConfig   `yaml:"chunking" json:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings" json:"embeddings"`
	Vector     VectorConfig     `yaml:"vector" json:"vector"`
	Keyword    KeywordConfig    `yaml:"keyword" json:"keyword"`
	Search     SearchConfig     `yaml:"search" json:"search"`
	Indexing   IndexingConfig   `yaml:"indexing" json:"indexing"`
	Logging    LoggingConfig    `yaml:"logging" json:"logging"`
}

// ChunkingConfig configures document chunking.
type ChunkingConfig struct {
	// MaxTokens is the chunk window size in tokens.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens"`
	// Overlap is the token overlap between consecutive chunks.
	// Must be smaller than MaxTokens.
	Overlap int `yaml:"overlap" json:"overlap"`
	// Encoding is the tokenizer encoding name.
	Encoding string `yaml:"encoding" json:"encoding"`
}

// EmbeddingsConfig configures the embedding inference service.
type EmbeddingsConfig struct {
	Endpoint   string        `yaml:"endpoint" json:"endpoint"`
	Model      string        `yaml:"model" json:"model"`
	Dimensions int           `yaml:"dimensions" json:"dimensions"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
	// CacheSize is the query-embedding LRU capacity.
	CacheSize int `yaml:"cache_size" json:"cache_size"`
}

// VectorConfig configures the external vector store.
type VectorConfig struct {
	Endpoint   string        `yaml:"endpoint" json:"endpoint"`
	Collection string        `yaml:"collection" json:"collection"`
	APIKey     string        `yaml:"api_key" json:"api_key"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
}

// KeywordConfig configures the BM25 keyword index.
type KeywordConfig struct {
	// SnapshotPath is the on-disk snapshot file. Empty keeps the index
	// in memory only.
	SnapshotPath string `yaml:"snapshot_path" json:"snapshot_path"`
	// K1 is the BM25 term frequency saturation parameter.
	K1 float64 `yaml:"k1" json:"k1"`
	// B is the BM25 length normalization parameter. Nil means unset;
	// an explicit zero disables length normalization.
	B *float64 `yaml:"b" json:"b"`
	// LockTimeout bounds waits for the snapshot advisory lock.
	LockTimeout time.Duration `yaml:"lock_timeout" json:"lock_timeout"`
}

// SearchConfig configures query serving.
type SearchConfig struct {
	// DefaultLimit is the result count when a query does not set one.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	// RRFConstant is the reciprocal rank fusion smoothing parameter.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`
	// Overfetch multiplies the limit for hybrid sub-searches.
	Overfetch int `yaml:"overfetch" json:"overfetch"`
	// DegradePartial serves hybrid queries from the surviving index when
	// one branch fails instead of failing the query.
	DegradePartial *bool `yaml:"degrade_partial" json:"degrade_partial"`
}

// IndexingConfig configures batch ingestion.
type IndexingConfig struct {
	// Workers is the batch concurrency.
	Workers int `yaml:"workers" json:"workers"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level" json:"level"`
	// File is the log file path. Empty logs to stderr.
	File string `yaml:"file" json:"file"`
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	degrade := true
	b := 0.75
	return &Config{
		Version: 1,
		Chunking: ChunkingConfig{
			MaxTokens: 256,
			Overlap:   50,
			Encoding:  "cl100k_base",
		},
		Embeddings: EmbeddingsConfig{
			Endpoint:   "http://localhost:8876",
			Model:      "nomic-embed-text",
			Dimensions: 768,
			Timeout:    60 * time.Second,
			MaxRetries: 3,
			CacheSize:  1000,
		},
		Vector: VectorConfig{
			Endpoint:   "http://localhost:6333",
			Collection: "netsift_chunks",
			Timeout:    30 * time.Second,
			MaxRetries: 3,
		},
		Keyword: KeywordConfig{
			SnapshotPath: defaultSnapshotPath(),
			K1:           1.2,
			B:            &b,
			LockTimeout:  30 * time.Second,
		},
		Search: SearchConfig{
			DefaultLimit:   10,
			RRFConstant:    60,
			Overfetch:      2,
			DegradePartial: &degrade,
		},
		Indexing: IndexingConfig{
			Workers: runtime.NumCPU(),
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// defaultSnapshotPath puts the keyword snapshot under the user data dir.
func defaultSnapshotPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".netsift", "keyword.snapshot.json")
	}
	return filepath.Join(home, ".netsift", "keyword.snapshot.json")
}

// UserConfigPath returns the user/global config file path, following the
// XDG base directory convention.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "netsift", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "netsift", "config.yaml")
	}
	return filepath.Join(home, ".config", "netsift", "config.yaml")
}

// Load builds the effective configuration. dir is the project directory
// searched for netsift.yaml; an empty dir skips the project file.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if path := UserConfigPath(); fileExists(path) {
		if err := cfg.loadYAML(path); err != nil {
			return nil, err
		}
	}

	if dir != "" {
		for _, name := range []string{"netsift.yaml", "netsift.yml"} {
			path := filepath.Join(dir, name)
			if fileExists(path) {
				if err := cfg.loadYAML(path); err != nil {
					return nil, err
				}
				break
			}
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile builds the configuration from one explicit file plus env
// overrides, bypassing the search order.
func LoadFile(path string) (*Config, error) {
	cfg := NewConfig()
	if !fileExists(path) {
		return nil, sifterr.New(sifterr.ErrCodeConfigNotFound, "config file not found: "+path, nil)
	}
	if err := cfg.loadYAML(path); err != nil {
		return nil, err
	}
	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML merges non-zero values from a YAML file over the receiver.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return sifterr.New(sifterr.ErrCodeConfigNotFound, "failed to read config file "+path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return sifterr.New(sifterr.ErrCodeConfigInvalid, "failed to parse config file "+path, err)
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith overlays non-zero values from other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Chunking.MaxTokens != 0 {
		c.Chunking.MaxTokens = other.Chunking.MaxTokens
	}
	if other.Chunking.Overlap != 0 {
		c.Chunking.Overlap = other.Chunking.Overlap
	}
	if other.Chunking.Encoding != "" {
		c.Chunking.Encoding = other.Chunking.Encoding
	}

	if other.Embeddings.Endpoint != "" {
		c.Embeddings.Endpoint = other.Embeddings.Endpoint
	}
	if other.Embeddings.Model != "" {
		c.Embeddings.Model = other.Embeddings.Model
	}
	if other.Embeddings.Dimensions != 0 {
		c.Embeddings.Dimensions = other.Embeddings.Dimensions
	}
	if other.Embeddings.Timeout != 0 {
		c.Embeddings.Timeout = other.Embeddings.Timeout
	}
	if other.Embeddings.MaxRetries != 0 {
		c.Embeddings.MaxRetries = other.Embeddings.MaxRetries
	}
	if other.Embeddings.CacheSize != 0 {
		c.Embeddings.CacheSize = other.Embeddings.CacheSize
	}

	if other.Vector.Endpoint != "" {
		c.Vector.Endpoint = other.Vector.Endpoint
	}
	if other.Vector.Collection != "" {
		c.Vector.Collection = other.Vector.Collection
	}
	if other.Vector.APIKey != "" {
		c.Vector.APIKey = other.Vector.APIKey
	}
	if other.Vector.Timeout != 0 {
		c.Vector.Timeout = other.Vector.Timeout
	}
	if other.Vector.MaxRetries != 0 {
		c.Vector.MaxRetries = other.Vector.MaxRetries
	}

	if other.Keyword.SnapshotPath != "" {
		c.Keyword.SnapshotPath = other.Keyword.SnapshotPath
	}
	if other.Keyword.K1 != 0 {
		c.Keyword.K1 = other.Keyword.K1
	}
	if other.Keyword.B != nil {
		c.Keyword.B = other.Keyword.B
	}
	if other.Keyword.LockTimeout != 0 {
		c.Keyword.LockTimeout = other.Keyword.LockTimeout
	}

	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.Overfetch != 0 {
		c.Search.Overfetch = other.Search.Overfetch
	}
	if other.Search.DegradePartial != nil {
		c.Search.DegradePartial = other.Search.DegradePartial
	}

	if other.Indexing.Workers != 0 {
		c.Indexing.Workers = other.Indexing.Workers
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = other.Logging.File
	}
}

// applyEnvOverrides applies NETSIFT_* environment variables, the highest
// precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("NETSIFT_EMBEDDINGS_ENDPOINT"); v != "" {
		c.Embeddings.Endpoint = v
	}
	if v := os.Getenv("NETSIFT_EMBEDDINGS_MODEL"); v != "" {
		c.Embeddings.Model = v
	}
	if v := os.Getenv("NETSIFT_EMBEDDINGS_DIMENSIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Embeddings.Dimensions = n
		}
	}
	if v := os.Getenv("NETSIFT_VECTOR_ENDPOINT"); v != "" {
		c.Vector.Endpoint = v
	}
	if v := os.Getenv("NETSIFT_VECTOR_COLLECTION"); v != "" {
		c.Vector.Collection = v
	}
	if v := os.Getenv("NETSIFT_VECTOR_API_KEY"); v != "" {
		c.Vector.APIKey = v
	}
	if v := os.Getenv("NETSIFT_KEYWORD_SNAPSHOT"); v != "" {
		c.Keyword.SnapshotPath = v
	}
	if v := os.Getenv("NETSIFT_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}
	if v := os.Getenv("NETSIFT_DEGRADE_PARTIAL"); v != "" {
		b := strings.ToLower(v) == "true" || v == "1"
		c.Search.DegradePartial = &b
	}
	if v := os.Getenv("NETSIFT_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Indexing.Workers = n
		}
	}
	if v := os.Getenv("NETSIFT_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("NETSIFT_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	var problems []string

	if c.Chunking.MaxTokens <= 0 {
		problems = append(problems, "chunking.max_tokens must be positive")
	}
	if c.Chunking.Overlap < 0 {
		problems = append(problems, "chunking.overlap must not be negative")
	}
	if c.Chunking.Overlap >= c.Chunking.MaxTokens && c.Chunking.MaxTokens > 0 {
		problems = append(problems, "chunking.overlap must be smaller than chunking.max_tokens")
	}
	if c.Embeddings.Dimensions <= 0 {
		problems = append(problems, "embeddings.dimensions must be positive")
	}
	if c.Embeddings.Endpoint == "" {
		problems = append(problems, "embeddings.endpoint must be set")
	}
	if c.Vector.Endpoint == "" {
		problems = append(problems, "vector.endpoint must be set")
	}
	if c.Vector.Collection == "" {
		problems = append(problems, "vector.collection must be set")
	}
	if c.Keyword.K1 <= 0 {
		problems = append(problems, "keyword.k1 must be positive")
	}
	if c.Keyword.B != nil && (*c.Keyword.B < 0 || *c.Keyword.B > 1) {
		problems = append(problems, "keyword.b must be within [0, 1]")
	}
	if c.Search.DefaultLimit <= 0 {
		problems = append(problems, "search.default_limit must be positive")
	}
	if c.Search.RRFConstant <= 0 {
		problems = append(problems, "search.rrf_constant must be positive")
	}
	if c.Indexing.Workers <= 0 {
		problems = append(problems, "indexing.workers must be positive")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, "logging.level must be debug, info, warn, or error")
	}

	if len(problems) > 0 {
		return sifterr.New(sifterr.ErrCodeConfigInvalid,
			fmt.Sprintf("invalid configuration: %s", strings.Join(problems, "; ")), nil)
	}
	return nil
}

// DegradePartial returns the effective degrade-on-partial-failure flag.
func (c *Config) DegradePartial() bool {
	if c.Search.DegradePartial == nil {
		return true
	}
	return *c.Search.DegradePartial
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
