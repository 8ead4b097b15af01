package provider

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postThrough(t *testing.T, transport *CachingTransport, url, body string) string {
	t.Helper()

	client := &http.Client{Transport: transport}
	resp, err := client.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func TestCachingTransport_CachesIdenticalRequests(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	transport := NewCachingTransport(t.TempDir(), nil)

	first := postThrough(t, transport, srv.URL, `{"prompt":"same"}`)
	second := postThrough(t, transport, srv.URL, `{"prompt":"same"}`)

	assert.Equal(t, first, second)
	assert.Equal(t, int64(1), hits.Load(), "second request served from cache")
}

func TestCachingTransport_DistinctBodiesMiss(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	transport := NewCachingTransport(t.TempDir(), nil)

	postThrough(t, transport, srv.URL, `{"prompt":"a"}`)
	postThrough(t, transport, srv.URL, `{"prompt":"b"}`)

	assert.Equal(t, int64(2), hits.Load())
}

func TestCachingTransport_ErrorResponsesNotCached(t *testing.T) {
	var hits atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	transport := NewCachingTransport(t.TempDir(), nil)

	postThrough(t, transport, srv.URL, `{"prompt":"x"}`)
	postThrough(t, transport, srv.URL, `{"prompt":"x"}`)

	assert.Equal(t, int64(2), hits.Load(), "non-2xx responses are never cached")
}
