// Package textproc provides URL canonicalization and text normalization
// shared by the indexing pipeline and the search orchestrator.
//
// The canonical URL is the cross-index identity: two raw URLs that differ
// only by tracking parameters or fragment must canonicalize identically so
// that fusion treats them as one logical document.
package textproc

import (
	"net/url"
	"sort"
	"strings"

	sifterr "github.com/netsift/netsift/internal/errors"
)

// trackingParams are query parameters stripped during canonicalization.
// They identify campaigns and sessions, never content.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_term":     {},
	"utm_content":  {},
	"utm_id":       {},
	"gclid":        {},
	"gclsrc":       {},
	"dclid":        {},
	"fbclid":       {},
	"msclkid":      {},
	"twclid":       {},
	"igshid":       {},
	"mc_cid":       {},
	"mc_eid":       {},
	"ref_src":      {},
	"ref_url":      {},
	"_hsenc":       {},
	"_hsmi":        {},
	"hsctatracking": {},
	"s_kwcid":      {},
	"yclid":        {},
}

// isTrackingParam reports whether a query key carries tracking state.
// Any utm_-prefixed key is treated as tracking even if not listed.
func isTrackingParam(key string) bool {
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, "utm_") {
		return true
	}
	_, ok := trackingParams[lower]
	return ok
}

// CanonicalURL normalizes a raw URL into its canonical form:
// lowercase scheme and host, fragment dropped, tracking parameters stripped,
// default ports removed, remaining query keys sorted for stability.
func CanonicalURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", sifterr.New(sifterr.ErrCodeInvalidURL, "empty url", nil)
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return "", sifterr.New(sifterr.ErrCodeInvalidURL, "unparseable url: "+trimmed, err)
	}
	if u.Host == "" {
		return "", sifterr.New(sifterr.ErrCodeInvalidURL, "url without host: "+trimmed, nil)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	// Drop default ports.
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) ||
		(u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndex(u.Host, ":")]
	}

	// Strip tracking params; sort the survivors so equal queries encode equally.
	if u.RawQuery != "" {
		q := u.Query()
		keys := make([]string, 0, len(q))
		for k := range q {
			if isTrackingParam(k) {
				delete(q, k)
				continue
			}
			keys = append(keys, k)
		}
		sort.Strings(keys)

		var b strings.Builder
		for _, k := range keys {
			for _, v := range q[k] {
				if b.Len() > 0 {
					b.WriteByte('&')
				}
				b.WriteString(url.QueryEscape(k))
				if v != "" {
					b.WriteByte('=')
					b.WriteString(url.QueryEscape(v))
				}
			}
		}
		u.RawQuery = b.String()
	}

	// "/" and "" are the same root document.
	if u.Path == "/" && u.RawQuery == "" {
		u.Path = ""
	}

	return u.String(), nil
}

// Host returns the lowercase host of a URL, or "" if unparseable.
// Used for domain filters at query time.
func Host(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}
