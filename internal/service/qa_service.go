package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docuseek/docqa/internal/config"
	"github.com/docuseek/docqa/internal/metrics"
	"github.com/docuseek/docqa/internal/model"
	appErr "github.com/docuseek/docqa/internal/pkg/errors"
	"github.com/docuseek/docqa/internal/repo"
)

const noResultAnswer = "No relevant information found in the uploaded documents."

// Retriever finds scored chunks for a question, optionally narrowed to
// one document.
type Retriever interface {
	Search(ctx context.Context, query string, documentID string, limit int) ([]model.Chunk, error)
}

// Synthesizer turns retrieved chunks into a grounded answer.
type Synthesizer interface {
	Answer(ctx context.Context, question string, chunks []model.Chunk) (*model.Answer, error)
}

// Embedder vectorizes a question for the semantic answer cache.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// AnswerCache stores answers keyed by question embedding.
type AnswerCache interface {
	Save(ctx context.Context, entry *repo.AnswerCacheEntry, embedding []float32) error
	Nearest(ctx context.Context, embedding []float32, maxDistance float64) (*repo.AnswerCacheEntry, error)
}

type QAService struct {
	retriever   Retriever
	synthesizer Synthesizer
	embedder    Embedder
	semCache    AnswerCache

	topK        int
	maxDistance float64
	cache       *expirable.LRU[string, model.AnswerResult]
	now         func() time.Time
}

func NewQAService(retriever Retriever, synthesizer Synthesizer, embedder Embedder, semCache AnswerCache, qa config.QAConfig) *QAService {
	cache := expirable.NewLRU[string, model.AnswerResult](qa.CacheSize, nil, time.Duration(qa.CacheTTLMinutes)*time.Minute)
	return &QAService{
		retriever:   retriever,
		synthesizer: synthesizer,
		embedder:    embedder,
		semCache:    semCache,
		topK:        qa.TopK,
		maxDistance: qa.SemanticCacheDistance,
		cache:       cache,
		now:         time.Now,
	}
}

// Ask answers a question against the indexed documents. It never returns
// an error: every failure mode collapses into the result envelope so the
// caller always has something presentable.
func (s *QAService) Ask(ctx context.Context, question string, documentID string, sessionID string) (result model.AnswerResult) {
	start := s.now()
	logger := logutil.GetLogger(ctx).With(
		zap.String("question", question),
		zap.String("document_id", documentID),
		zap.String("session_id", sessionID))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("question pipeline panicked", zap.Any("panic", r))
			result = errorResult(question, "internal error")
		}
		status := result.Status
		if result.Error != "" {
			status = result.Error
		}
		metrics.ObserveQARequest(status, time.Since(start))
	}()

	key := cacheKey(question, documentID)
	if cached, ok := s.cache.Get(key); ok {
		logger.Debug("answer served from cache")
		return cached
	}

	var embedding []float32
	if documentID == "" {
		embedding = s.questionEmbedding(ctx, question)
		if hit := s.semanticLookup(ctx, embedding); hit != nil {
			logger.Info("answer served from semantic cache", zap.String("cached_question", hit.Question))
			result = answerResult(question, hit.Answer, hit.Citations, model.ConfidenceHigh, len(hit.Citations), "")
			s.cache.Add(key, result)
			return result
		}
	}

	chunks, err := s.retriever.Search(ctx, question, documentID, s.topK)
	if err != nil {
		logger.Error("retrieval failed", zap.Error(err))
		return errorResult(question, err.Error())
	}
	if len(chunks) == 0 {
		// Not cached: the document may finish indexing moments later and
		// a stale "nothing found" would stick for the whole TTL.
		logger.Info("no chunks retrieved")
		return answerResult(question, noResultAnswer, []model.Citation{}, model.ConfidenceNone, 0, "")
	}

	answer, err := s.synthesizer.Answer(ctx, question, chunks)
	if err != nil {
		logger.Error("answer generation failed", zap.Error(err))
		return errorResult(question, err.Error())
	}
	result = answerResult(question, answer.Text, answer.Citations, answer.Confidence, len(chunks), answer.ErrorTag)
	if answer.ErrorTag == "" {
		s.cache.Add(key, result)
		if documentID == "" && embedding != nil {
			s.semanticSave(ctx, question, embedding, answer)
		}
	}
	return result
}

// questionEmbedding is advisory: when the embedding chain is down the
// pipeline continues without the semantic cache.
func (s *QAService) questionEmbedding(ctx context.Context, question string) []float32 {
	if s.embedder == nil {
		return nil
	}
	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		logutil.GetLogger(ctx).Warn("question embedding unavailable, skipping semantic cache", zap.Error(err))
		return nil
	}
	return embedding
}

func (s *QAService) semanticLookup(ctx context.Context, embedding []float32) *repo.AnswerCacheEntry {
	if s.semCache == nil || embedding == nil {
		return nil
	}
	entry, err := s.semCache.Nearest(ctx, embedding, s.maxDistance)
	if err != nil {
		if !appErr.IsNotFound(err) {
			logutil.GetLogger(ctx).Warn("semantic cache lookup failed", zap.Error(err))
		}
		return nil
	}
	return entry
}

func (s *QAService) semanticSave(ctx context.Context, question string, embedding []float32, answer *model.Answer) {
	if s.semCache == nil {
		return
	}
	entry := &repo.AnswerCacheEntry{
		ID:        uuid.NewString(),
		Question:  question,
		Answer:    answer.Text,
		Citations: answer.Citations,
		Ctime:     s.now().UnixMilli(),
	}
	if err := s.semCache.Save(ctx, entry, embedding); err != nil {
		logutil.GetLogger(ctx).Warn("semantic cache save failed", zap.Error(err))
	}
}

func cacheKey(question string, documentID string) string {
	sum := sha256.Sum256([]byte(question + "|" + documentID))
	return hex.EncodeToString(sum[:])
}

func answerResult(question, text string, citations []model.Citation, confidence model.Confidence, chunksFound int, errorTag string) model.AnswerResult {
	if citations == nil {
		citations = []model.Citation{}
	}
	return model.AnswerResult{
		Question:    question,
		Answer:      &text,
		Citations:   citations,
		Confidence:  confidence,
		ChunksFound: chunksFound,
		Status:      "success",
		Error:       errorTag,
	}
}

func errorResult(question, message string) model.AnswerResult {
	return model.AnswerResult{
		Question:  question,
		Citations: []model.Citation{},
		Status:    "error",
		Error:     message,
	}
}
