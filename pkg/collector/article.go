package collector

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Boilerplate stripped before text extraction.
const boilerplateSelectors = "script, style, nav, footer, header, aside, form, iframe, noscript, .sidebar, #sidebar, .ad, .advertisement, .popup, .modal, .cookie-banner"

// Containers tried in order; the first with text wins.
var contentSelectors = []string{
	"article",
	"main",
	"[role='main']",
	".main-content",
	".entry-content",
	".post-content",
	".post-body",
	".article-body",
	"#content",
	".content",
}

const blockSelectors = "p, h1, h2, h3, h4, h5, h6, li, blockquote, pre"

var multiNewline = regexp.MustCompile(`\n{3,}`)

// ExtractTitle returns the document title, preferring <title>, then
// og:title, then the first <h1>.
func ExtractTitle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	if title := strings.TrimSpace(doc.Find("head title").First().Text()); title != "" {
		return title
	}
	if og, ok := doc.Find("meta[property='og:title']").First().Attr("content"); ok {
		if og = strings.TrimSpace(og); og != "" {
			return og
		}
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

// ExtractArticle pulls the readable text out of an HTML document: strip
// boilerplate, find the main content container, then join its block
// elements with paragraph breaks. Returns "" when nothing useful remains.
func ExtractArticle(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	doc.Find(boilerplateSelectors).Remove()

	var container *goquery.Selection
	for _, sel := range contentSelectors {
		s := doc.Find(sel).First()
		if s.Length() > 0 && strings.TrimSpace(s.Text()) != "" {
			container = s
			break
		}
	}
	if container == nil {
		container = doc.Find("body")
	}

	var blocks []string
	container.Find(blockSelectors).Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			blocks = append(blocks, text)
		}
	})
	text := strings.Join(blocks, "\n\n")
	if text == "" {
		text = strings.TrimSpace(container.Text())
	}
	return strings.TrimSpace(multiNewline.ReplaceAllString(text, "\n\n"))
}

// FindArticleLinks returns candidate article URLs from a listing page,
// resolved against baseURL, order-preserving and deduplicated. Links are
// kept only when the resolved URL has enough path segments to plausibly be
// an article rather than a section index.
func FindArticleLinks(html, baseURL string) []string {
	return findLinks(html, baseURL, func(full string) bool {
		return len(strings.Split(full, "/")) > 4
	})
}

// FindPDFLinks returns all links to .pdf documents on a page, resolved
// against baseURL and deduplicated.
func FindPDFLinks(html, baseURL string) []string {
	return findLinks(html, baseURL, func(full string) bool {
		return strings.HasSuffix(strings.ToLower(full), ".pdf")
	})
}

func findLinks(html, baseURL string, keep func(string) bool) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}
	seen := make(map[string]bool)
	var links []string
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") || strings.HasPrefix(href, "mailto:") {
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		full := base.ResolveReference(ref).String()
		if !keep(full) || seen[full] {
			return
		}
		seen[full] = true
		links = append(links, full)
	})
	return links
}
