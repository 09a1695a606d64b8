// Package answer builds grounded prompts from retrieved chunks and turns
// completion provider output into an answer with citations.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/docuseek/docqa/internal/ai"
	"github.com/docuseek/docqa/internal/metrics"
	"github.com/docuseek/docqa/internal/model"
	apperr "github.com/docuseek/docqa/internal/pkg/errors"
)

const (
	// NoContextAnswer is returned without any provider call when there is
	// nothing to ground an answer on.
	NoContextAnswer = "I couldn't find relevant information in the uploaded documents to answer your question."

	rateLimitAnswer = "I'm currently experiencing high demand. Please try again in a minute."
	timeoutAnswer   = "The request timed out. Please try again with a simpler question."

	citationMaxChars = 300
)

type Config struct {
	Deployment       string
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
	Attempts         int
	RetryDelay       time.Duration
	RequestTimeout   time.Duration
}

func (c *Config) applyDefaults() {
	if c.Temperature == 0 {
		c.Temperature = 0.3
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1200
	}
	if c.TopP == 0 {
		c.TopP = 0.95
	}
	if c.FrequencyPenalty == 0 {
		c.FrequencyPenalty = 0.3
	}
	if c.PresencePenalty == 0 {
		c.PresencePenalty = 0.1
	}
	if c.Attempts <= 0 {
		c.Attempts = 2
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = 5 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 20 * time.Second
	}
}

type Synthesizer struct {
	provider ai.Provider
	cfg      Config
	sleep    func(time.Duration)
}

func NewSynthesizer(provider ai.Provider, cfg Config) *Synthesizer {
	cfg.applyDefaults()
	return &Synthesizer{
		provider: provider,
		cfg:      cfg,
		sleep:    time.Sleep,
	}
}

// Answer produces a grounded answer for the question. Rate limiting and
// timeouts come back as soft results the caller can display; only
// unexpected provider failures are returned as errors.
func (s *Synthesizer) Answer(ctx context.Context, question string, chunks []model.Chunk) (*model.Answer, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("question", question), zap.Int("chunks", len(chunks)))
	if len(chunks) == 0 {
		logger.Warn("no context available to generate answer")
		return &model.Answer{
			Text:       NoContextAnswer,
			Citations:  []model.Citation{},
			Confidence: model.ConfidenceLow,
		}, nil
	}

	prompt := buildPrompt(question, chunks)
	logger.Debug("sending prompt to completion provider", zap.Int("prompt_chars", len(prompt)))

	var text string
	for attempt := 1; ; attempt++ {
		start := time.Now()
		var err error
		text, err = s.complete(ctx, prompt)
		metrics.ObserveDependency("completion", time.Since(start))
		if err == nil {
			break
		}
		switch {
		case errors.Is(err, ai.ErrRateLimited):
			logger.Warn("completion rate limited", zap.Int("attempt", attempt), zap.Error(err))
			if attempt < s.cfg.Attempts {
				s.sleep(s.cfg.RetryDelay)
				continue
			}
			return softAnswer(rateLimitAnswer, "rate_limit"), nil
		case errors.Is(err, ai.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
			logger.Warn("completion timed out", zap.Error(err))
			return softAnswer(timeoutAnswer, "timeout"), nil
		default:
			return nil, fmt.Errorf("%w: %v", apperr.ErrAnswerGeneration, err)
		}
	}

	return &model.Answer{
		Text:       text,
		Citations:  buildCitations(chunks),
		Confidence: model.ConfidenceHigh,
	}, nil
}

func (s *Synthesizer) complete(ctx context.Context, prompt string) (string, error) {
	cctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()
	return s.provider.Complete(cctx, ai.CompletionRequest{
		Deployment:       s.cfg.Deployment,
		Prompt:           prompt,
		Temperature:      s.cfg.Temperature,
		MaxTokens:        s.cfg.MaxTokens,
		TopP:             s.cfg.TopP,
		FrequencyPenalty: s.cfg.FrequencyPenalty,
		PresencePenalty:  s.cfg.PresencePenalty,
	})
}

// buildPrompt combines grounding rules, the labeled context block and the
// question into a single user-role message. Some completion deployments
// ignore or penalize system-role messages, so everything rides in one.
func buildPrompt(question string, chunks []model.Chunk) string {
	var contextBlock strings.Builder
	for i, chunk := range chunks {
		if i > 0 {
			contextBlock.WriteString("\n\n")
		}
		fmt.Fprintf(&contextBlock, "[Document %d] %s", i+1, chunk.Text())
	}
	return fmt.Sprintf(`You are a helpful AI assistant that answers questions based on provided document excerpts.

Rules:
1. Answer ONLY based on the provided context
2. If the answer is not in the context, say "I don't have enough information to answer that"
3. Be concise and accurate
4. Reference which document(s) you used in your answer
5. If you're uncertain, indicate that

Context from documents:
%s

Question: %s

Please provide a clear answer based on the context above.`, contextBlock.String(), question)
}

func buildCitations(chunks []model.Chunk) []model.Citation {
	citations := make([]model.Citation, 0, len(chunks))
	for i, chunk := range chunks {
		citations = append(citations, model.Citation{
			DocumentID: chunk.DocumentID,
			Source:     fmt.Sprintf("Document %d", i+1),
			Text:       truncate(chunk.Text(), citationMaxChars),
			Score:      chunk.Score,
		})
	}
	return citations
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

func softAnswer(text string, tag string) *model.Answer {
	return &model.Answer{
		Text:       text,
		Citations:  []model.Citation{},
		Confidence: model.ConfidenceNone,
		ErrorTag:   tag,
	}
}
