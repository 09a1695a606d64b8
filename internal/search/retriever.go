package search

import (
	"context"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docuseek/docqa/internal/metrics"
	"github.com/docuseek/docqa/internal/model"
	"github.com/docuseek/docqa/internal/pathcodec"
)

const searchFields = "content,merged_content"

type RetrieverConfig struct {
	TopK             int
	ProbePageSize    int
	WildcardPageSize int
}

// Retriever turns backend index entries into chunks with recovered
// document identifiers, and layers a per-document post-filter on top of a
// backend that has no native document filter.
type Retriever struct {
	client *Client
	cfg    RetrieverConfig
}

func NewRetriever(client *Client, cfg RetrieverConfig) *Retriever {
	if cfg.TopK <= 0 {
		cfg.TopK = 5
	}
	if cfg.ProbePageSize <= 0 {
		cfg.ProbePageSize = 100
	}
	if cfg.WildcardPageSize <= 0 {
		cfg.WildcardPageSize = 20
	}
	return &Retriever{client: client, cfg: cfg}
}

// Search returns relevance-ranked chunks for the query, optionally scoped
// to one document. An empty result is valid; backend failures are not.
func (r *Retriever) Search(ctx context.Context, query string, documentID string, limit int) ([]model.Chunk, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("query", query), zap.String("document_id", documentID))
	if limit <= 0 {
		limit = r.cfg.TopK
	}
	start := time.Now()
	result, err := r.client.Query(ctx, QueryRequest{
		Search:       query,
		SearchFields: searchFields,
		Top:          limit,
		Highlight:    searchFields,
		Count:        true,
	})
	metrics.ObserveDependency("search", time.Since(start))
	if err != nil {
		return nil, err
	}
	chunks := make([]model.Chunk, 0, len(result.Value))
	for _, doc := range result.Value {
		chunks = append(chunks, toChunk(doc))
	}
	if documentID == "" {
		logger.Debug("search completed", zap.Int("chunks", len(chunks)))
		return chunks, nil
	}

	filtered := chunks[:0]
	for _, chunk := range chunks {
		if chunk.DocumentID == documentID {
			filtered = append(filtered, chunk)
		}
	}
	logger.Debug("filtered by document", zap.Int("before", len(result.Value)), zap.Int("after", len(filtered)))
	if len(filtered) > 0 {
		return filtered, nil
	}
	// Relevance ranking can miss a document entirely on an exact-filter-less
	// backend; fall back to one broad scan and match decoded paths. This is
	// O(index page) per miss, a known scalability limit.
	return r.wildcardFallback(ctx, documentID)
}

func (r *Retriever) wildcardFallback(ctx context.Context, documentID string) ([]model.Chunk, error) {
	logutil.GetLogger(ctx).Info("no scoped results, trying wildcard fallback", zap.String("document_id", documentID))
	result, err := r.client.Query(ctx, QueryRequest{
		Search: "*",
		Top:    r.cfg.WildcardPageSize,
		Count:  true,
	})
	if err != nil {
		return nil, err
	}
	var chunks []model.Chunk
	for _, doc := range result.Value {
		decoded, ok := pathcodec.Decode(doc.StoragePath)
		if !ok || !strings.Contains(decoded, documentID) {
			continue
		}
		chunk := toChunk(doc)
		chunk.DocumentID = documentID
		chunk.Score = 1.0
		chunks = append(chunks, chunk)
	}
	if chunks == nil {
		chunks = []model.Chunk{}
	}
	return chunks, nil
}

// ProbeIndexed reports whether any index entry references the document.
// The probe is advisory: misconfiguration and transport failures read as
// "not indexed", never as an error.
func (r *Retriever) ProbeIndexed(ctx context.Context, documentID string) bool {
	result, err := r.client.Query(ctx, QueryRequest{
		Search: "*",
		Top:    r.cfg.ProbePageSize,
	})
	if err != nil {
		logutil.GetLogger(ctx).Debug("index probe failed", zap.String("document_id", documentID), zap.Error(err))
		return false
	}
	needle := "/documents/" + documentID
	for _, doc := range result.Value {
		decoded, ok := pathcodec.Decode(doc.StoragePath)
		if !ok {
			continue
		}
		if strings.Contains(decoded, needle+"/") || strings.HasSuffix(decoded, needle) {
			return true
		}
	}
	return false
}

func toChunk(doc IndexDoc) model.Chunk {
	decoded, _ := pathcodec.Decode(doc.StoragePath)
	var highlights []string
	for _, field := range []string{"merged_content", "content"} {
		highlights = append(highlights, doc.Highlights[field]...)
	}
	return model.Chunk{
		DocumentID:    pathcodec.DocumentID(doc.StoragePath),
		Content:       doc.Content,
		MergedContent: doc.MergedContent,
		StoragePath:   decoded,
		Score:         doc.Score,
		Highlights:    highlights,
	}
}
