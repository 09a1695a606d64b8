// Package ai abstracts the completion and embedding providers behind a
// single interface with a named-factory registry. Providers classify their
// failures into the error classes the pipeline retries or degrades on.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// CompletionRequest carries one grounded completion call. Deployment is
// the provisioned model instance to address.
type CompletionRequest struct {
	Deployment       string
	Prompt           string
	Temperature      float64
	MaxTokens        int
	TopP             float64
	FrequencyPenalty float64
	PresencePenalty  float64
}

type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Embed(ctx context.Context, deployment string, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, deployment string, texts []string) ([][]float32, error)
}

type ProviderFactory func(args interface{}) (Provider, error)

var registry = map[string]ProviderFactory{}

func Register(name string, factory ProviderFactory) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" || factory == nil {
		return
	}
	registry[key] = factory
}

func NewProvider(name string, args interface{}) (Provider, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	factory := registry[key]
	if factory == nil {
		return nil, fmt.Errorf("unsupported ai provider: %s", name)
	}
	return factory(args)
}

func decodeConfig(args interface{}, dst interface{}) error {
	if args == nil {
		return fmt.Errorf("ai provider config is required")
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Errorf("encode ai provider config: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode ai provider config: %w", err)
	}
	return nil
}
