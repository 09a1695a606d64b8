package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/docuseek/docqa/internal/ai"
	"github.com/docuseek/docqa/internal/model"
	apperr "github.com/docuseek/docqa/internal/pkg/errors"
)

type fakeCompleter struct {
	OnComplete func(ctx context.Context, req ai.CompletionRequest) (string, error)
	calls      int
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	f.calls++
	if f.OnComplete != nil {
		return f.OnComplete(ctx, req)
	}
	return "answer", nil
}

func (f *fakeCompleter) Embed(ctx context.Context, deployment string, text string) ([]float32, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeCompleter) EmbedBatch(ctx context.Context, deployment string, texts []string) ([][]float32, error) {
	return nil, errors.New("not implemented")
}

func newTestSynthesizer(provider ai.Provider) (*Synthesizer, *[]time.Duration) {
	s := NewSynthesizer(provider, Config{Deployment: "gpt-4o"})
	var slept []time.Duration
	s.sleep = func(d time.Duration) { slept = append(slept, d) }
	return s, &slept
}

func TestAnswer_NoChunksSkipsProvider(t *testing.T) {
	provider := &fakeCompleter{}
	s, _ := newTestSynthesizer(provider)

	ans, err := s.Answer(context.Background(), "what is this?", nil)
	require.NoError(t, err)
	require.Equal(t, NoContextAnswer, ans.Text)
	require.Equal(t, model.ConfidenceLow, ans.Confidence)
	require.Empty(t, ans.Citations)
	require.Zero(t, provider.calls)
}

func TestAnswer_Success(t *testing.T) {
	var seen ai.CompletionRequest
	provider := &fakeCompleter{
		OnComplete: func(ctx context.Context, req ai.CompletionRequest) (string, error) {
			seen = req
			return "The policy allows it.", nil
		},
	}
	s, _ := newTestSynthesizer(provider)

	chunks := []model.Chunk{
		{DocumentID: "doc-1", Content: "first excerpt", Score: 0.9},
		{DocumentID: "doc-2", MergedContent: "second excerpt", Score: 0.5},
	}
	ans, err := s.Answer(context.Background(), "is it allowed?", chunks)
	require.NoError(t, err)
	require.Equal(t, "The policy allows it.", ans.Text)
	require.Equal(t, model.ConfidenceHigh, ans.Confidence)

	require.Len(t, ans.Citations, 2)
	require.Equal(t, "Document 1", ans.Citations[0].Source)
	require.Equal(t, "doc-1", ans.Citations[0].DocumentID)
	require.Equal(t, "first excerpt", ans.Citations[0].Text)
	require.Equal(t, 0.9, ans.Citations[0].Score)
	require.Equal(t, "Document 2", ans.Citations[1].Source)
	require.Equal(t, "second excerpt", ans.Citations[1].Text)

	require.Equal(t, "gpt-4o", seen.Deployment)
	require.Contains(t, seen.Prompt, "[Document 1] first excerpt")
	require.Contains(t, seen.Prompt, "[Document 2] second excerpt")
	require.Contains(t, seen.Prompt, "Question: is it allowed?")
	require.Equal(t, 0.3, seen.Temperature)
	require.Equal(t, 1200, seen.MaxTokens)
	require.Equal(t, 0.95, seen.TopP)
}

func TestAnswer_LongCitationTruncated(t *testing.T) {
	provider := &fakeCompleter{}
	s, _ := newTestSynthesizer(provider)

	long := strings.Repeat("x", 500)
	ans, err := s.Answer(context.Background(), "q", []model.Chunk{{DocumentID: "doc-1", Content: long}})
	require.NoError(t, err)
	require.Len(t, ans.Citations, 1)
	require.Len(t, ans.Citations[0].Text, citationMaxChars+len("..."))
	require.True(t, strings.HasSuffix(ans.Citations[0].Text, "..."))
}

func TestAnswer_RateLimitRetriesThenSoftResult(t *testing.T) {
	provider := &fakeCompleter{
		OnComplete: func(ctx context.Context, req ai.CompletionRequest) (string, error) {
			return "", fmt.Errorf("%w: throttled", ai.ErrRateLimited)
		},
	}
	s, slept := newTestSynthesizer(provider)

	ans, err := s.Answer(context.Background(), "q", []model.Chunk{{DocumentID: "doc-1", Content: "text"}})
	require.NoError(t, err)
	require.Equal(t, "rate_limit", ans.ErrorTag)
	require.Equal(t, model.ConfidenceNone, ans.Confidence)
	require.Empty(t, ans.Citations)
	require.Equal(t, 2, provider.calls)
	require.Equal(t, []time.Duration{5 * time.Second}, *slept)
}

func TestAnswer_RateLimitRecoversOnRetry(t *testing.T) {
	provider := &fakeCompleter{}
	provider.OnComplete = func(ctx context.Context, req ai.CompletionRequest) (string, error) {
		if provider.calls == 1 {
			return "", fmt.Errorf("%w: throttled", ai.ErrRateLimited)
		}
		return "recovered", nil
	}
	s, slept := newTestSynthesizer(provider)

	ans, err := s.Answer(context.Background(), "q", []model.Chunk{{DocumentID: "doc-1", Content: "text"}})
	require.NoError(t, err)
	require.Equal(t, "recovered", ans.Text)
	require.Empty(t, ans.ErrorTag)
	require.Equal(t, model.ConfidenceHigh, ans.Confidence)
	require.Len(t, *slept, 1)
}

func TestAnswer_TimeoutSoftResult(t *testing.T) {
	provider := &fakeCompleter{
		OnComplete: func(ctx context.Context, req ai.CompletionRequest) (string, error) {
			return "", fmt.Errorf("%w: deadline", ai.ErrTimeout)
		},
	}
	s, slept := newTestSynthesizer(provider)

	ans, err := s.Answer(context.Background(), "q", []model.Chunk{{DocumentID: "doc-1", Content: "text"}})
	require.NoError(t, err)
	require.Equal(t, "timeout", ans.ErrorTag)
	require.Equal(t, model.ConfidenceNone, ans.Confidence)
	require.Equal(t, 1, provider.calls)
	require.Empty(t, *slept)
}

func TestAnswer_UnexpectedErrorPropagates(t *testing.T) {
	provider := &fakeCompleter{
		OnComplete: func(ctx context.Context, req ai.CompletionRequest) (string, error) {
			return "", errors.New("invalid api key")
		},
	}
	s, _ := newTestSynthesizer(provider)

	_, err := s.Answer(context.Background(), "q", []model.Chunk{{DocumentID: "doc-1", Content: "text"}})
	require.ErrorIs(t, err, apperr.ErrAnswerGeneration)
	require.Equal(t, 1, provider.calls)
}
