package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	OnEmbed      func(ctx context.Context, deployment string, text string) ([]float32, error)
	OnEmbedBatch func(ctx context.Context, deployment string, texts []string) ([][]float32, error)
	embedCalls   []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return "", errors.New("not implemented")
}

func (f *fakeProvider) Embed(ctx context.Context, deployment string, text string) ([]float32, error) {
	f.embedCalls = append(f.embedCalls, deployment)
	if f.OnEmbed != nil {
		return f.OnEmbed(ctx, deployment, text)
	}
	return []float32{0.1}, nil
}

func (f *fakeProvider) EmbedBatch(ctx context.Context, deployment string, texts []string) ([][]float32, error) {
	if f.OnEmbedBatch != nil {
		return f.OnEmbedBatch(ctx, deployment, texts)
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(i)}
	}
	return out, nil
}

func TestResolverEmbed_PrimarySucceeds(t *testing.T) {
	provider := &fakeProvider{
		OnEmbed: func(ctx context.Context, deployment string, text string) ([]float32, error) {
			return []float32{1, 2, 3}, nil
		},
	}
	resolver := NewEmbeddingResolver(provider, "primary")

	vector, err := resolver.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{1, 2, 3}, vector)
	require.Equal(t, []string{"primary"}, provider.embedCalls)
}

func TestResolverEmbed_FallbackAfterNotFound(t *testing.T) {
	provider := &fakeProvider{
		OnEmbed: func(ctx context.Context, deployment string, text string) ([]float32, error) {
			if deployment == "primary" {
				return nil, fmt.Errorf("%w: primary gone", ErrDeploymentNotFound)
			}
			return []float32{9}, nil
		},
	}
	resolver := NewEmbeddingResolver(provider, "primary")

	vector, err := resolver.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, []float32{9}, vector)
	// First fallback succeeded, so no further candidates are tried.
	require.Equal(t, []string{"primary", "text-embedding-3-small"}, provider.embedCalls)
}

func TestResolverEmbed_OtherErrorAborts(t *testing.T) {
	boom := errors.New("connection refused")
	provider := &fakeProvider{
		OnEmbed: func(ctx context.Context, deployment string, text string) ([]float32, error) {
			return nil, boom
		},
	}
	resolver := NewEmbeddingResolver(provider, "primary")

	_, err := resolver.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, boom)
	require.Len(t, provider.embedCalls, 1)
}

func TestResolverEmbed_Exhausted(t *testing.T) {
	provider := &fakeProvider{
		OnEmbed: func(ctx context.Context, deployment string, text string) ([]float32, error) {
			return nil, fmt.Errorf("%w: %s", ErrDeploymentNotFound, deployment)
		},
	}
	resolver := NewEmbeddingResolver(provider, "primary")

	_, err := resolver.Embed(context.Background(), "hello")
	var unavailable *EmbeddingUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, []string{"primary", "text-embedding-3-small", "text-embedding-ada-002", "embedding"}, unavailable.Tried)
	require.Contains(t, err.Error(), "primary")
	require.Contains(t, err.Error(), "embedding")
}

func TestResolverEmbedBatch_UsesPrimaryOnly(t *testing.T) {
	var used string
	provider := &fakeProvider{
		OnEmbedBatch: func(ctx context.Context, deployment string, texts []string) ([][]float32, error) {
			used = deployment
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = []float32{float32(i)}
			}
			return out, nil
		},
	}
	resolver := NewEmbeddingResolver(provider, "primary")

	vectors, err := resolver.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Equal(t, "primary", used)
	require.Equal(t, [][]float32{{0}, {1}, {2}}, vectors)
}

func TestNewEmbeddingResolver_DeduplicatesCandidates(t *testing.T) {
	resolver := NewEmbeddingResolver(&fakeProvider{}, "text-embedding-ada-002")
	require.Equal(t, []string{"text-embedding-ada-002", "text-embedding-3-small", "embedding"}, resolver.Candidates())
}
