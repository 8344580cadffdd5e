// Package vector wraps the external vector database behind a thin typed
// HTTP client: batched upsert with retry, filtered cosine search executed
// by the store, and a health probe.
//
// The store exclusively owns chunk-vector storage; nothing is cached or
// filtered locally. Collection provisioning is assumed done before first use.
package vector

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Defaults for the vector store client.
const (
	DefaultEndpoint   = "http://localhost:6333"
	DefaultCollection = "netsift_chunks"
	DefaultTimeout    = 30 * time.Second
	DefaultMaxRetries = 3
	DefaultPoolSize   = 8
)

// Payload is the metadata stored alongside each chunk vector. The store
// applies exact-match filters over these fields at search time.
type Payload struct {
	URL          string `json:"url"`
	CanonicalURL string `json:"canonical_url"`
	Domain       string `json:"domain"`
	Ordinal      int    `json:"ordinal"`
	TokenCount   int    `json:"token_count"`
	Language     string `json:"language,omitempty"`
	Country      string `json:"country,omitempty"`
	Mobile       bool   `json:"mobile"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	Text         string `json:"text"`
}

// Point is one chunk vector plus payload, addressed by a deterministic ID.
type Point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// Hit is a single similarity-search result.
type Hit struct {
	ID      string  `json:"id"`
	Score   float32 `json:"score"`
	Payload Payload `json:"payload"`
}

// Filters are exact-match conditions applied by the store, never locally.
// Zero values mean "no constraint".
type Filters struct {
	Domain   string
	Language string
	Country  string
	Mobile   *bool
}

// IsZero reports whether no filter is set.
func (f Filters) IsZero() bool {
	return f.Domain == "" && f.Language == "" && f.Country == "" && f.Mobile == nil
}

// PointID derives the deterministic ID for a chunk: UUIDv5 over the
// canonical URL and chunk ordinal. Re-ingesting a document overwrites the
// same IDs; ordinals beyond the new chunk count are a known stale-chunk gap.
func PointID(canonicalURL string, ordinal int) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(fmt.Sprintf("%s#%d", canonicalURL, ordinal))).String()
}

// Wire types for the store's REST API.

type upsertRequest struct {
	Points []wirePoint `json:"points"`
}

type wirePoint struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

type searchRequest struct {
	Vector      []float32   `json:"vector"`
	Limit       int         `json:"limit"`
	WithPayload bool        `json:"with_payload"`
	Filter      *wireFilter `json:"filter,omitempty"`
}

type wireFilter struct {
	Must []wireCondition `json:"must"`
}

type wireCondition struct {
	Key   string    `json:"key"`
	Match wireMatch `json:"match"`
}

type wireMatch struct {
	Value any `json:"value"`
}

type searchResponse struct {
	Result []struct {
		ID      string  `json:"id"`
		Score   float32 `json:"score"`
		Payload Payload `json:"payload"`
	} `json:"result"`
}

type collectionInfoResponse struct {
	Result struct {
		PointsCount int `json:"points_count"`
	} `json:"result"`
}
