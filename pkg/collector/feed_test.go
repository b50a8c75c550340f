package collector

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>SemiAnalysis</title>
    <item>
      <title>CoWoS capacity sold out through 2027</title>
      <link>https://example.com/articles/cowos-sold-out</link>
      <description>TSMC advanced packaging allocation tightens.</description>
      <pubDate>Mon, 02 Feb 2026 09:30:00 +0000</pubDate>
    </item>
    <item>
      <title>HBM pricing update</title>
      <link>https://example.com/articles/hbm-pricing</link>
      <description>SK hynix raises HBM3E prices.</description>
      <pubDate>not a date</pubDate>
    </item>
  </channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Fab Watch</title>
  <entry>
    <title>Substrate lead times stretch</title>
    <link rel="self" href="https://example.com/self.xml"/>
    <link rel="alternate" href="https://example.com/posts/substrate-lead-times"/>
    <summary>ABF substrate lead times move from 12 to 20 weeks.</summary>
    <published>2026-02-03T08:00:00Z</published>
  </entry>
  <entry>
    <title>Power update</title>
    <link href="https://example.com/posts/power-update"/>
    <content>Transformer backlog data for Q1.</content>
    <updated>2026-02-04T10:00:00Z</updated>
  </entry>
</feed>`

func TestParseFeedRSS(t *testing.T) {
	items, err := parseFeed([]byte(rssFixture))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "CoWoS capacity sold out through 2027", items[0].Title)
	assert.Equal(t, "https://example.com/articles/cowos-sold-out", items[0].Link)
	assert.Equal(t, "TSMC advanced packaging allocation tightens.", items[0].Summary)
	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, time.Date(2026, 2, 2, 9, 30, 0, 0, time.UTC), *items[0].PublishedAt)

	assert.Nil(t, items[1].PublishedAt, "unparseable dates should be dropped")
}

func TestParseFeedAtom(t *testing.T) {
	items, err := parseFeed([]byte(atomFixture))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "https://example.com/posts/substrate-lead-times", items[0].Link,
		"alternate link should win over rel=self")
	assert.Equal(t, "ABF substrate lead times move from 12 to 20 weeks.", items[0].Summary)
	require.NotNil(t, items[0].PublishedAt)
	assert.Equal(t, time.Date(2026, 2, 3, 8, 0, 0, 0, time.UTC), *items[0].PublishedAt)

	assert.Equal(t, "https://example.com/posts/power-update", items[1].Link)
	assert.Equal(t, "Transformer backlog data for Q1.", items[1].Summary,
		"content should fill in when summary is missing")
	require.NotNil(t, items[1].PublishedAt)
	assert.Equal(t, time.Date(2026, 2, 4, 10, 0, 0, 0, time.UTC), *items[1].PublishedAt,
		"updated should fill in when published is missing")
}

func TestParseFeedGarbage(t *testing.T) {
	_, err := parseFeed([]byte("<html><body>not a feed</body></html>"))
	assert.Error(t, err)
}

func TestParseFeedDate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  *time.Time
	}{
		{
			name:  "rfc1123z",
			input: "Tue, 03 Feb 2026 14:00:00 +0900",
			want:  timePtr(time.Date(2026, 2, 3, 5, 0, 0, 0, time.UTC)),
		},
		{
			name:  "rfc3339",
			input: "2026-02-03T14:00:00+09:00",
			want:  timePtr(time.Date(2026, 2, 3, 5, 0, 0, 0, time.UTC)),
		},
		{
			name:  "plain datetime",
			input: "2026-02-03 14:00:00",
			want:  timePtr(time.Date(2026, 2, 3, 14, 0, 0, 0, time.UTC)),
		},
		{name: "empty", input: "", want: nil},
		{name: "garbage", input: "last tuesday", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFeedDate(tt.input)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "want %s, got %s", tt.want, got)
		})
	}
}

func timePtr(t time.Time) *time.Time { return &t }

func TestFetchFeedConditionalGet(t *testing.T) {
	var requests int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get("If-None-Match") == `"v1"` {
			assert.NotEmpty(t, r.Header.Get("If-Modified-Since"))
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Header().Set("Last-Modified", "Mon, 02 Feb 2026 09:30:00 GMT")
		_, _ = w.Write([]byte(rssFixture))
	}))
	defer server.Close()

	c := &Collector{
		fetcher: NewFetcher(100),
		feeds:   newFeedCache(),
		logger:  slog.Default(),
	}

	data, notModified, err := c.fetchFeed(context.Background(), server.URL)
	require.NoError(t, err)
	assert.False(t, notModified)
	assert.NotEmpty(t, data)

	_, notModified, err = c.fetchFeed(context.Background(), server.URL)
	require.NoError(t, err)
	assert.True(t, notModified)
	assert.Equal(t, 2, requests)
}
