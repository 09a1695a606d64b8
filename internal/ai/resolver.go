package ai

import (
	"context"
	"errors"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// Known-good deployment names tried after the configured primary. The
// list mirrors the deployments the index skillset is provisioned with.
var defaultFallbacks = []string{
	"text-embedding-3-small",
	"text-embedding-ada-002",
	"embedding",
}

// EmbeddingResolver tries a prioritized list of embedding deployments
// until one answers. Only the deployment-not-found class moves the chain
// forward; any other failure aborts immediately so unrelated errors are
// never masked as deployment-selection failures.
type EmbeddingResolver struct {
	provider   Provider
	candidates []string
}

func NewEmbeddingResolver(provider Provider, primary string, fallbacks ...string) *EmbeddingResolver {
	if len(fallbacks) == 0 {
		fallbacks = defaultFallbacks
	}
	seen := make(map[string]bool, len(fallbacks)+1)
	candidates := make([]string, 0, len(fallbacks)+1)
	for _, name := range append([]string{primary}, fallbacks...) {
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		candidates = append(candidates, name)
	}
	return &EmbeddingResolver{provider: provider, candidates: candidates}
}

func (r *EmbeddingResolver) Embed(ctx context.Context, text string) ([]float32, error) {
	logger := logutil.GetLogger(ctx)
	var lastErr error
	for _, deployment := range r.candidates {
		vector, err := r.provider.Embed(ctx, deployment, text)
		if err == nil {
			logger.Debug("embedding generated",
				zap.String("deployment", deployment),
				zap.Int("dimensions", len(vector)))
			return vector, nil
		}
		if !errors.Is(err, ErrDeploymentNotFound) {
			return nil, err
		}
		lastErr = err
		logger.Warn("embedding deployment not found, trying next", zap.String("deployment", deployment))
	}
	return nil, &EmbeddingUnavailableError{Tried: r.candidates, Last: lastErr}
}

// EmbedBatch embeds all texts with the primary deployment only, keeping
// input order. Batch callers are expected to have validated the primary.
func (r *EmbeddingResolver) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(r.candidates) == 0 {
		return nil, &EmbeddingUnavailableError{}
	}
	return r.provider.EmbedBatch(ctx, r.candidates[0], texts)
}

// Candidates exposes the resolution order, primary first.
func (r *EmbeddingResolver) Candidates() []string {
	out := make([]string, len(r.candidates))
	copy(out, r.candidates)
	return out
}
