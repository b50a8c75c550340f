package collector

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetcherGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte("hello"))
	}))
	defer server.Close()

	f := NewFetcher(100)
	body, err := f.Get(context.Background(), server.URL, FetchOptions{Timeout: articleTimeout})
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
}

func TestFetcherGetStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	f := NewFetcher(100)
	_, err := f.Get(context.Background(), server.URL, FetchOptions{Timeout: articleTimeout})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFetcherInsecureTLS(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	f := NewFetcher(100)
	_, err := f.Get(context.Background(), server.URL, FetchOptions{Timeout: articleTimeout})
	assert.Error(t, err, "self-signed cert should fail the default client")

	body, err := f.Get(context.Background(), server.URL, FetchOptions{Timeout: articleTimeout, Insecure: true})
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
}

func TestFetcherLimiterPerDomain(t *testing.T) {
	f := NewFetcher(2)
	a := f.limiter("example.com")
	assert.Same(t, a, f.limiter("example.com"), "one limiter per host")
	assert.NotSame(t, a, f.limiter("other.example.org"))
}

func TestNewFetcherDefaultsRate(t *testing.T) {
	f := NewFetcher(0)
	assert.Equal(t, float64(1), float64(f.perDomain))
}
