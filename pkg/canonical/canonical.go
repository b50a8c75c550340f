// Package canonical computes the canonical URL form and the content hashes
// used for item dedup. Canonicalization is deterministic and idempotent:
// hashes from different collectors agree on the same artifact.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// trackingParams are stripped from query strings before hashing. Checked
// case-insensitively against the parameter key.
var trackingParams = map[string]struct{}{
	"utm_source":   {},
	"utm_medium":   {},
	"utm_campaign": {},
	"utm_content":  {},
	"utm_term":     {},
	"fbclid":       {},
	"gclid":        {},
	"ref":          {},
	"source":       {},
	"mc_cid":       {},
	"mc_eid":       {},
}

// CanonicalizeURL normalizes a URL for dedup: lowercase scheme and host,
// strip a leading www., drop the fragment, drop tracking and blank query
// parameters, sort the remainder by key, and trim trailing slashes from the
// path. Unparseable input is returned unchanged so hashing stays total.
func CanonicalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	scheme := strings.ToLower(u.Scheme)
	host := strings.TrimRight(strings.ToLower(u.Host), ".")
	host = strings.TrimPrefix(host, "www.")

	query := ""
	if u.RawQuery != "" {
		if parsed, err := url.ParseQuery(u.RawQuery); err == nil {
			filtered := url.Values{}
			for key, values := range parsed {
				if _, drop := trackingParams[strings.ToLower(key)]; drop {
					continue
				}
				for _, v := range values {
					if v == "" {
						continue
					}
					filtered.Add(key, v)
				}
			}
			query = filtered.Encode()
		}
	}

	path := strings.TrimRight(u.EscapedPath(), "/")
	if path == "" {
		path = "/"
	}

	var b strings.Builder
	if host != "" {
		if !strings.HasPrefix(path, "/") {
			path = "/" + path
		}
		b.WriteString("//")
		b.WriteString(host)
	}
	b.WriteString(path)
	out := b.String()
	if scheme != "" {
		out = scheme + ":" + out
	}
	if query != "" {
		out += "?" + query
	}
	return out
}

// URLHash is the SHA-256 hex digest of the canonical URL form.
func URLHash(raw string) string {
	sum := sha256.Sum256([]byte(CanonicalizeURL(raw)))
	return hex.EncodeToString(sum[:])
}

// ContentHash is the SHA-256 hex digest of the text with runs of whitespace
// collapsed to single spaces, for cross-source duplicate suppression.
func ContentHash(text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
