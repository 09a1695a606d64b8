package search

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	apperr "github.com/docuseek/docqa/internal/pkg/errors"
)

func encodePath(path string) string {
	return base64.StdEncoding.EncodeToString([]byte(path))
}

// fakeBackend serves the docs/search endpoint: scored docs for real
// queries, the whole corpus for wildcard scans.
type fakeBackend struct {
	docs     []IndexDoc
	wildcard []IndexDoc
	status   int
	requests []QueryRequest
}

func (f *fakeBackend) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.Header.Get("api-key"))
		var req QueryRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.requests = append(f.requests, req)
		if f.status != 0 {
			w.WriteHeader(f.status)
			return
		}
		value := f.docs
		if req.Search == "*" {
			value = f.wildcard
		}
		_ = json.NewEncoder(w).Encode(QueryResult{Count: int64(len(value)), Value: value})
	}
}

func newTestRetriever(t *testing.T, backend *fakeBackend) (*Retriever, *httptest.Server) {
	server := httptest.NewServer(backend.handler(t))
	t.Cleanup(server.Close)
	client := NewClient(Config{
		Endpoint: server.URL,
		APIKey:   "secret",
		Index:    "documents-index",
		Indexer:  "documents-indexer",
	})
	return NewRetriever(client, RetrieverConfig{TopK: 5, ProbePageSize: 100, WildcardPageSize: 20}), server
}

func TestSearch_UnscopedReturnsAllChunks(t *testing.T) {
	backend := &fakeBackend{
		docs: []IndexDoc{
			{
				StoragePath:   encodePath("https://acct.blob.core.windows.net/documents/doc-1/report.pdf"),
				Content:       "quarterly revenue grew",
				MergedContent: "quarterly revenue grew strongly",
				Score:         3.2,
				Highlights:    map[string][]string{"content": {"<em>revenue</em>"}},
			},
			{
				StoragePath: encodePath("https://acct.blob.core.windows.net/documents/doc-2/notes.docx"),
				Content:     "meeting notes",
				Score:       1.1,
			},
		},
	}
	retriever, _ := newTestRetriever(t, backend)

	chunks, err := retriever.Search(context.Background(), "revenue", "", 0)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, "doc-1", chunks[0].DocumentID)
	require.Equal(t, "quarterly revenue grew strongly", chunks[0].Text())
	require.Equal(t, 3.2, chunks[0].Score)
	require.Equal(t, []string{"<em>revenue</em>"}, chunks[0].Highlights)
	require.Equal(t, "doc-2", chunks[1].DocumentID)
	require.Equal(t, "meeting notes", chunks[1].Text())

	require.Len(t, backend.requests, 1)
	require.Equal(t, "revenue", backend.requests[0].Search)
	require.Equal(t, "content,merged_content", backend.requests[0].SearchFields)
	require.Equal(t, 5, backend.requests[0].Top)
}

func TestSearch_ScopedFiltersInPlace(t *testing.T) {
	backend := &fakeBackend{
		docs: []IndexDoc{
			{StoragePath: encodePath("https://x/documents/doc-1/a.pdf"), Content: "match", Score: 2},
			{StoragePath: encodePath("https://x/documents/doc-2/b.pdf"), Content: "other", Score: 1},
		},
	}
	retriever, _ := newTestRetriever(t, backend)

	chunks, err := retriever.Search(context.Background(), "q", "doc-1", 0)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, "doc-1", chunks[0].DocumentID)
	require.Len(t, backend.requests, 1)
}

func TestSearch_ScopedMissTriggersWildcardFallback(t *testing.T) {
	backend := &fakeBackend{
		docs: []IndexDoc{
			{StoragePath: encodePath("https://x/documents/doc-9/z.pdf"), Content: "irrelevant", Score: 2},
		},
		wildcard: []IndexDoc{
			{StoragePath: encodePath("https://x/documents/doc-1/a.pdf"), Content: "found via scan", Score: 0.01},
			{StoragePath: encodePath("https://x/documents/doc-9/z.pdf"), Content: "irrelevant", Score: 2},
		},
	}
	retriever, _ := newTestRetriever(t, backend)

	chunks, err := retriever.Search(context.Background(), "q", "doc-1", 0)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	require.Equal(t, "*", backend.requests[1].Search)
	require.Equal(t, 20, backend.requests[1].Top)
	require.Equal(t, "doc-1", chunks[0].DocumentID)
	// Fallback matches are pinned to full relevance.
	require.Equal(t, 1.0, chunks[0].Score)
	require.Equal(t, "found via scan", chunks[0].Text())
}

func TestSearch_ScopedMissAndEmptyFallback(t *testing.T) {
	backend := &fakeBackend{
		docs: []IndexDoc{
			{StoragePath: encodePath("https://x/documents/doc-9/z.pdf"), Content: "other", Score: 2},
		},
	}
	retriever, _ := newTestRetriever(t, backend)

	chunks, err := retriever.Search(context.Background(), "q", "doc-1", 0)
	require.NoError(t, err)
	require.NotNil(t, chunks)
	require.Empty(t, chunks)
}

func TestSearch_BackendFailure(t *testing.T) {
	backend := &fakeBackend{status: http.StatusServiceUnavailable}
	retriever, _ := newTestRetriever(t, backend)

	_, err := retriever.Search(context.Background(), "q", "", 0)
	require.ErrorIs(t, err, apperr.ErrRetrieval)
}

func TestSearch_Unconfigured(t *testing.T) {
	client := NewClient(Config{})
	retriever := NewRetriever(client, RetrieverConfig{})

	_, err := retriever.Search(context.Background(), "q", "", 0)
	require.ErrorIs(t, err, apperr.ErrNotConfigured)
}

func TestProbeIndexed(t *testing.T) {
	backend := &fakeBackend{
		wildcard: []IndexDoc{
			{StoragePath: encodePath("https://x/documents/doc-1/a.pdf")},
			{StoragePath: encodePath("https://x/documents/doc-2")},
			{StoragePath: "%%%not-base64%%%"},
		},
	}
	retriever, _ := newTestRetriever(t, backend)

	require.True(t, retriever.ProbeIndexed(context.Background(), "doc-1"))
	require.True(t, retriever.ProbeIndexed(context.Background(), "doc-2"))
	require.False(t, retriever.ProbeIndexed(context.Background(), "doc-3"))
}

func TestProbeIndexed_FailuresReadAsNotIndexed(t *testing.T) {
	backend := &fakeBackend{status: http.StatusInternalServerError}
	retriever, _ := newTestRetriever(t, backend)
	require.False(t, retriever.ProbeIndexed(context.Background(), "doc-1"))

	unconfigured := NewRetriever(NewClient(Config{}), RetrieverConfig{})
	require.False(t, unconfigured.ProbeIndexed(context.Background(), "doc-1"))
}

func TestRunIndexer(t *testing.T) {
	var path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusAccepted)
	}))
	t.Cleanup(server.Close)
	client := NewClient(Config{Endpoint: server.URL, APIKey: "secret", Index: "idx", Indexer: "documents-indexer"})

	require.NoError(t, client.RunIndexer(context.Background()))
	require.Equal(t, "/indexers/documents-indexer/run", path)
}

func TestRunIndexer_RejectsNonAccepted(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	t.Cleanup(server.Close)
	client := NewClient(Config{Endpoint: server.URL, APIKey: "secret", Index: "idx", Indexer: "documents-indexer"})

	require.Error(t, client.RunIndexer(context.Background()))
}
