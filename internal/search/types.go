// Package search serves queries over the two indexes: semantic
// nearest-neighbor, BM25 keyword, or both fused with reciprocal rank
// fusion.
package search

import (
	"strings"

	sifterr "github.com/netsift/netsift/internal/errors"
	"github.com/netsift/netsift/internal/keyword"
	"github.com/netsift/netsift/internal/vector"
)

// Mode selects which index(es) a query runs against.
type Mode string

const (
	ModeSemantic Mode = "semantic"
	ModeKeyword  Mode = "keyword"
	ModeHybrid   Mode = "hybrid"
)

// ParseMode validates a mode string. Empty defaults to hybrid.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return ModeHybrid, nil
	case ModeSemantic:
		return ModeSemantic, nil
	case ModeKeyword:
		return ModeKeyword, nil
	case ModeHybrid:
		return ModeHybrid, nil
	default:
		return "", sifterr.New(sifterr.ErrCodeInvalidMode,
			"search mode must be semantic, keyword, or hybrid, got "+s, nil)
	}
}

// Defaults for query serving.
const (
	DefaultLimit     = 10
	DefaultRRFK      = 60
	DefaultOverfetch = 2
	SnippetLength    = 240
)

// Filters are exact-match constraints passed through to both indexes.
type Filters struct {
	Domain   string
	Language string
	Country  string
	Mobile   *bool
}

func (f Filters) vector() vector.Filters {
	return vector.Filters{Domain: f.Domain, Language: f.Language, Country: f.Country, Mobile: f.Mobile}
}

func (f Filters) keyword() keyword.Filters {
	return keyword.Filters{Domain: f.Domain, Language: f.Language, Country: f.Country, Mobile: f.Mobile}
}

// Request is one search query.
type Request struct {
	Query   string
	Mode    Mode
	Limit   int
	Filters Filters
}

// Result is one ranked document in a response.
type Result struct {
	URL          string  `json:"url"`
	CanonicalURL string  `json:"canonical_url"`
	Domain       string  `json:"domain,omitempty"`
	Title        string  `json:"title,omitempty"`
	Snippet      string  `json:"snippet,omitempty"`
	Score        float64 `json:"score"`

	// Sources lists which indexes surfaced this document.
	Sources []string `json:"sources"`
}

// Response is the outcome of one query.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
	Mode    Mode     `json:"mode"`

	// Degraded is set when a hybrid query lost one index branch and was
	// served from the surviving one.
	Degraded bool `json:"degraded,omitempty"`
}
