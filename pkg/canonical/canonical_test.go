package canonical

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "lowercases scheme and host",
			in:   "HTTPS://Example.COM/News",
			want: "https://example.com/News",
		},
		{
			name: "strips www prefix",
			in:   "https://www.example.com/a",
			want: "https://example.com/a",
		},
		{
			name: "strips trailing dot from host",
			in:   "https://example.com./a",
			want: "https://example.com/a",
		},
		{
			name: "drops fragment",
			in:   "https://example.com/a#section-2",
			want: "https://example.com/a",
		},
		{
			name: "drops tracking params",
			in:   "https://example.com/a?utm_source=x&utm_medium=y&fbclid=z&id=7",
			want: "https://example.com/a?id=7",
		},
		{
			name: "tracking param check is case insensitive",
			in:   "https://example.com/a?UTM_Source=x&id=7",
			want: "https://example.com/a?id=7",
		},
		{
			name: "sorts remaining params by key",
			in:   "https://example.com/a?z=1&a=2&m=3",
			want: "https://example.com/a?a=2&m=3&z=1",
		},
		{
			name: "drops blank values",
			in:   "https://example.com/a?empty=&id=7",
			want: "https://example.com/a?id=7",
		},
		{
			name: "strips trailing slash",
			in:   "https://example.com/a/b/",
			want: "https://example.com/a/b",
		},
		{
			name: "strips repeated trailing slashes",
			in:   "https://example.com/a///",
			want: "https://example.com/a",
		},
		{
			name: "empty path becomes root",
			in:   "https://example.com",
			want: "https://example.com/",
		},
		{
			name: "bare root is kept",
			in:   "https://example.com/",
			want: "https://example.com/",
		},
		{
			name: "repeated keys keep value order",
			in:   "https://example.com/a?t=2&t=1",
			want: "https://example.com/a?t=2&t=1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalizeURL(tt.in))
		})
	}
}

func TestCanonicalizeURLIdempotent(t *testing.T) {
	urls := []string{
		"https://WWW.Example.com/path/?b=2&a=1&utm_source=feed#top",
		"http://news.example.co.jp/記事/123?ref=rss",
		"https://example.com",
		"not a url at all",
	}
	for _, u := range urls {
		once := CanonicalizeURL(u)
		assert.Equal(t, once, CanonicalizeURL(once), "not idempotent for %q", u)
	}
}

func TestURLHashEquivalenceClasses(t *testing.T) {
	base := URLHash("https://example.com/report?page=2&sort=asc")

	same := []string{
		"https://EXAMPLE.com/report?page=2&sort=asc",
		"https://www.example.com/report?page=2&sort=asc",
		"https://example.com/report/?page=2&sort=asc",
		"https://example.com/report?sort=asc&page=2",
		"https://example.com/report?page=2&sort=asc&utm_campaign=q3",
		"https://example.com/report?page=2&sort=asc#anchor",
	}
	for _, u := range same {
		assert.Equal(t, base, URLHash(u), "expected same hash for %q", u)
	}

	different := []string{
		"https://example.com/report?page=3&sort=asc",
		"https://example.com/reports?page=2&sort=asc",
		"https://other.com/report?page=2&sort=asc",
	}
	for _, u := range different {
		assert.NotEqual(t, base, URLHash(u), "expected different hash for %q", u)
	}
}

func TestContentHashWhitespaceInvariant(t *testing.T) {
	base := ContentHash("TSMC CoWoS capacity is on allocation through 2026.")

	assert.Equal(t, base, ContentHash("TSMC  CoWoS\tcapacity is  on\nallocation through 2026."))
	assert.Equal(t, base, ContentHash("  TSMC CoWoS capacity is on allocation through 2026.\n\n"))
	assert.NotEqual(t, base, ContentHash("TSMC CoWoS capacity is on allocation through 2027."))
}
