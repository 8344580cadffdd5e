package search

import (
	"sort"
)

// candidate is one entry of a ranked sub-search list, reduced to the
// fields fusion needs.
type candidate struct {
	// Key is the fusion identity. Canonical URL when present, then raw
	// URL, then the store's internal ID as a last resort.
	Key string

	URL          string
	CanonicalURL string
	Domain       string
	Title        string
	Text         string

	// Native is the sub-search's own score, kept for single-index modes.
	Native float64
}

// fusionKey picks the identity under which ranked entries merge.
func fusionKey(canonicalURL, rawURL, internalID string) string {
	if canonicalURL != "" {
		return canonicalURL
	}
	if rawURL != "" {
		return rawURL
	}
	return internalID
}

// rankedList is one sub-search's output in rank order, tagged with its
// source name for result attribution.
type rankedList struct {
	source string
	items  []candidate
}

// fuse merges ranked lists with reciprocal rank fusion:
//
//	score(d) = Σ over lists containing d of 1 / (k + rank)
//
// with 1-indexed ranks. Within a single list only a document's best rank
// contributes; a document absent from a list simply adds nothing for it.
// Ordering is deterministic: score descending, then documents found by
// more sources first, then key ascending.
func fuse(k int, lists ...rankedList) []Result {
	type fused struct {
		cand    candidate
		score   float64
		sources []string
	}
	merged := make(map[string]*fused)

	for _, list := range lists {
		seen := make(map[string]struct{}, len(list.items))
		for rank, cand := range list.items {
			if _, dup := seen[cand.Key]; dup {
				continue
			}
			seen[cand.Key] = struct{}{}

			f, ok := merged[cand.Key]
			if !ok {
				f = &fused{cand: cand}
				merged[cand.Key] = f
			}
			f.score += 1 / float64(k+rank+1)
			f.sources = append(f.sources, list.source)
		}
	}

	out := make([]Result, 0, len(merged))
	for _, f := range merged {
		out = append(out, Result{
			URL:          f.cand.URL,
			CanonicalURL: f.cand.CanonicalURL,
			Domain:       f.cand.Domain,
			Title:        f.cand.Title,
			Snippet:      f.cand.Text,
			Score:        f.score,
			Sources:      f.sources,
		})
	}

	sort.Slice(out, func(a, b int) bool {
		if out[a].Score != out[b].Score {
			return out[a].Score > out[b].Score
		}
		if len(out[a].Sources) != len(out[b].Sources) {
			return len(out[a].Sources) > len(out[b].Sources)
		}
		return fusionKeyOf(out[a]) < fusionKeyOf(out[b])
	})
	return out
}

func fusionKeyOf(r Result) string {
	if r.CanonicalURL != "" {
		return r.CanonicalURL
	}
	return r.URL
}
