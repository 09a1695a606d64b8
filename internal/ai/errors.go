package ai

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnavailable = errors.New("ai provider unavailable")

	// ErrDeploymentNotFound marks the one failure class the embedding
	// resolver is allowed to skip past; everything else aborts the chain.
	ErrDeploymentNotFound = errors.New("deployment not found")

	ErrRateLimited = errors.New("rate limited")
	ErrTimeout     = errors.New("request timed out")
)

// EmbeddingUnavailableError reports an exhausted deployment fallback
// chain: every candidate was tried and none produced an embedding.
type EmbeddingUnavailableError struct {
	Tried []string
	Last  error
}

func (e *EmbeddingUnavailableError) Error() string {
	return fmt.Sprintf("no usable embedding deployment, tried: %s: last error: %v",
		strings.Join(e.Tried, ", "), e.Last)
}

func (e *EmbeddingUnavailableError) Unwrap() error {
	return e.Last
}
