package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
)

const defaultAzureAPIVersion = "2024-02-15-preview"

type azureConfig struct {
	Endpoint   string `json:"endpoint"`
	APIKey     string `json:"api_key"`
	APIVersion string `json:"api_version"`
}

// azureProvider addresses models by deployment name, the way the Azure
// OpenAI surface does: one URL per deployment, api-key header auth.
type azureProvider struct {
	endpoint   string
	apiKey     string
	apiVersion string
	http       *http.Client
}

func init() {
	Register("azure", createAzureProvider)
}

func createAzureProvider(args interface{}) (Provider, error) {
	cfg := &azureConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	version := strings.TrimSpace(cfg.APIVersion)
	if version == "" {
		version = defaultAzureAPIVersion
	}
	return &azureProvider{
		endpoint:   strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		apiVersion: version,
		// No client-level timeout: callers bound each request via context,
		// and bounds differ between completion and embedding calls.
		http: &http.Client{},
	}, nil
}

func (p *azureProvider) Name() string {
	return "azure"
}

type azureChatRequest struct {
	Messages         []azureChatMsg `json:"messages"`
	Temperature      float64        `json:"temperature"`
	MaxTokens        int            `json:"max_tokens"`
	TopP             float64        `json:"top_p"`
	FrequencyPenalty float64        `json:"frequency_penalty"`
	PresencePenalty  float64        `json:"presence_penalty"`
}

type azureChatMsg struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type azureChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (p *azureProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	if p.endpoint == "" || p.apiKey == "" {
		return "", ErrUnavailable
	}
	url := fmt.Sprintf("%s/openai/deployments/%s/chat/completions?api-version=%s",
		p.endpoint, req.Deployment, p.apiVersion)
	body := azureChatRequest{
		Messages:         []azureChatMsg{{Role: "user", Content: req.Prompt}},
		Temperature:      req.Temperature,
		MaxTokens:        req.MaxTokens,
		TopP:             req.TopP,
		FrequencyPenalty: req.FrequencyPenalty,
		PresencePenalty:  req.PresencePenalty,
	}
	var out azureChatResponse
	if err := p.do(ctx, url, body, &out); err != nil {
		return "", err
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("completion response has no choices")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}

type azureEmbedRequest struct {
	Input          interface{} `json:"input"`
	EncodingFormat string      `json:"encoding_format"`
}

type azureEmbedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (p *azureProvider) Embed(ctx context.Context, deployment string, text string) ([]float32, error) {
	vectors, err := p.embed(ctx, deployment, text)
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedding response has no data")
	}
	return vectors[0], nil
}

func (p *azureProvider) EmbedBatch(ctx context.Context, deployment string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := p.embed(ctx, deployment, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(vectors), len(texts))
	}
	return vectors, nil
}

func (p *azureProvider) embed(ctx context.Context, deployment string, input interface{}) ([][]float32, error) {
	if p.endpoint == "" || p.apiKey == "" {
		return nil, ErrUnavailable
	}
	url := fmt.Sprintf("%s/openai/deployments/%s/embeddings?api-version=%s",
		p.endpoint, deployment, p.apiVersion)
	var out azureEmbedResponse
	if err := p.do(ctx, url, azureEmbedRequest{Input: input, EncodingFormat: "float"}, &out); err != nil {
		return nil, err
	}
	sort.Slice(out.Data, func(i, j int) bool { return out.Data[i].Index < out.Data[j].Index })
	vectors := make([][]float32, 0, len(out.Data))
	for _, item := range out.Data {
		vectors = append(vectors, item.Embedding)
	}
	return vectors, nil
}

func (p *azureProvider) do(ctx context.Context, url string, payload interface{}, out interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", p.apiKey)
	resp, err := p.http.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return classifyStatusError(resp.StatusCode, resp.Status, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}

func classifyStatusError(code int, status string, body string) error {
	switch {
	case code == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s: %s", ErrRateLimited, status, body)
	case code == http.StatusNotFound && strings.Contains(body, "DeploymentNotFound"):
		return fmt.Errorf("%w: %s", ErrDeploymentNotFound, body)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %s: %s", ErrDeploymentNotFound, status, body)
	default:
		return fmt.Errorf("provider request failed: %s: %s", status, body)
	}
}
