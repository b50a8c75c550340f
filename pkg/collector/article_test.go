package collector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const articleHTML = `<html>
<head><title>CoWoS capacity sold out - SemiAnalysis</title></head>
<body>
<nav>Home | News | Subscribe</nav>
<script>track();</script>
<article>
  <h1>CoWoS capacity sold out</h1>
  <p>TSMC has allocated all 2026 CoWoS capacity.</p>
  <p>Amkor and ASE absorb overflow demand.</p>
</article>
<footer>Copyright 2026</footer>
</body></html>`

func TestExtractTitle(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "head title",
			html: articleHTML,
			want: "CoWoS capacity sold out - SemiAnalysis",
		},
		{
			name: "og title fallback",
			html: `<html><head><meta property="og:title" content="HBM supply briefing"/></head><body><h1>Other</h1></body></html>`,
			want: "HBM supply briefing",
		},
		{
			name: "h1 fallback",
			html: `<html><body><h1>Substrate lead times</h1></body></html>`,
			want: "Substrate lead times",
		},
		{
			name: "nothing",
			html: `<html><body><p>text</p></body></html>`,
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTitle(tt.html))
		})
	}
}

func TestExtractArticle(t *testing.T) {
	got := ExtractArticle(articleHTML)
	want := "CoWoS capacity sold out\n\n" +
		"TSMC has allocated all 2026 CoWoS capacity.\n\n" +
		"Amkor and ASE absorb overflow demand."
	assert.Equal(t, want, got)
	assert.NotContains(t, got, "Subscribe", "nav boilerplate should be stripped")
	assert.NotContains(t, got, "track()", "scripts should be stripped")
}

func TestExtractArticleBodyFallback(t *testing.T) {
	html := `<html><body>
<p>Transformer lead times hit 130 weeks.</p>
<p>Utilities report multi-year backlogs.</p>
</body></html>`
	got := ExtractArticle(html)
	assert.Equal(t, "Transformer lead times hit 130 weeks.\n\nUtilities report multi-year backlogs.", got)
}

func TestExtractArticleEmpty(t *testing.T) {
	assert.Equal(t, "", ExtractArticle("<html><body><script>x()</script></body></html>"))
}

func TestFindArticleLinks(t *testing.T) {
	listing := `<html><body>
<a href="#top">Top</a>
<a href="javascript:void(0)">JS</a>
<a href="mailto:tips@example.com">Tips</a>
<a href="/news/2026/cowos-allocation">CoWoS allocation</a>
<a href="/news/2026/cowos-allocation">Duplicate</a>
<a href="https://other.example.org/reports/q1-memory">Memory report</a>
<a href="/about">About</a>
</body></html>`

	links := FindArticleLinks(listing, "https://example.com/news")
	assert.Equal(t, []string{
		"https://example.com/news/2026/cowos-allocation",
		"https://other.example.org/reports/q1-memory",
	}, links)
}

func TestFindPDFLinks(t *testing.T) {
	listing := `<html><body>
<a href="/docs/Report-Q1.PDF">Q1 report</a>
<a href="https://example.com/docs/whitepaper.pdf">Whitepaper</a>
<a href="/docs/Report-Q1.PDF">Duplicate</a>
<a href="/docs/press-release.html">Press</a>
</body></html>`

	links := FindPDFLinks(listing, "https://example.com/publications")
	assert.Equal(t, []string{
		"https://example.com/docs/Report-Q1.PDF",
		"https://example.com/docs/whitepaper.pdf",
	}, links)
}
