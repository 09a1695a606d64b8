// Package search talks to the external search index backend over its REST
// surface: relevance queries against an index plus run/status control of
// the indexer that feeds it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	apperr "github.com/docuseek/docqa/internal/pkg/errors"
)

type Config struct {
	Endpoint   string
	APIKey     string
	Index      string
	Indexer    string
	APIVersion string
}

type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2023-11-01"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
	}
}

// Configured reports whether the backend can be queried at all. Endpoint,
// credential and index name must all be present.
func (c *Client) Configured() bool {
	return c.cfg.Endpoint != "" && c.cfg.APIKey != "" && c.cfg.Index != ""
}

type QueryRequest struct {
	Search       string `json:"search"`
	SearchFields string `json:"searchFields,omitempty"`
	Top          int    `json:"top"`
	Highlight    string `json:"highlight,omitempty"`
	Count        bool   `json:"count"`
}

type QueryResult struct {
	Count int64      `json:"@odata.count"`
	Value []IndexDoc `json:"value"`
}

type IndexDoc struct {
	StoragePath   string              `json:"metadata_storage_path"`
	Content       string              `json:"content"`
	MergedContent string              `json:"merged_content"`
	Score         float64             `json:"@search.score"`
	Highlights    map[string][]string `json:"@search.highlights"`
}

// Query runs a relevance search. A non-success status from the backend is
// an error, never an empty result.
func (c *Client) Query(ctx context.Context, req QueryRequest) (*QueryResult, error) {
	if !c.Configured() {
		return nil, fmt.Errorf("search backend: %w", apperr.ErrNotConfigured)
	}
	endpoint := strings.TrimRight(c.cfg.Endpoint, "/")
	url := fmt.Sprintf("%s/indexes/%s/docs/search?api-version=%s", endpoint, c.cfg.Index, c.cfg.APIVersion)
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	resp, err := c.post(ctx, url, payload)
	if err != nil {
		return nil, fmt.Errorf("search query: %v: %w", err, apperr.ErrRetrieval)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("search query failed: %s: %s: %w", resp.Status, strings.TrimSpace(string(body)), apperr.ErrRetrieval)
	}
	var out QueryResult
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %v: %w", err, apperr.ErrRetrieval)
	}
	return &out, nil
}

// RunIndexer asks the backend to run the configured indexer. The backend
// acknowledges with 202 Accepted.
func (c *Client) RunIndexer(ctx context.Context) error {
	if c.cfg.Endpoint == "" || c.cfg.APIKey == "" || c.cfg.Indexer == "" {
		return fmt.Errorf("search indexer: %w", apperr.ErrNotConfigured)
	}
	endpoint := strings.TrimRight(c.cfg.Endpoint, "/")
	url := fmt.Sprintf("%s/indexers/%s/run?api-version=%s", endpoint, c.cfg.Indexer, c.cfg.APIVersion)
	resp, err := c.post(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("trigger indexer: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("trigger indexer failed: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}

// IndexerStatus returns the raw status payload of the configured indexer.
func (c *Client) IndexerStatus(ctx context.Context) (map[string]interface{}, error) {
	if c.cfg.Endpoint == "" || c.cfg.APIKey == "" || c.cfg.Indexer == "" {
		return nil, fmt.Errorf("search indexer: %w", apperr.ErrNotConfigured)
	}
	endpoint := strings.TrimRight(c.cfg.Endpoint, "/")
	url := fmt.Sprintf("%s/indexers/%s/status?api-version=%s", endpoint, c.cfg.Indexer, c.cfg.APIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("api-key", c.cfg.APIKey)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("indexer status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("indexer status failed: %s", resp.Status)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, url string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", c.cfg.APIKey)
	return c.http.Do(req)
}
