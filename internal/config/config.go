package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port          int              `json:"port"`
	LogConfig     logger.LogConfig `json:"log_config"`
	DB            DatabaseConfig   `json:"db"`
	FileStore     FileStoreConfig  `json:"file_store"`
	Search        SearchConfig     `json:"search"`
	AI            AIConfig         `json:"ai"`
	QA            QAConfig         `json:"qa"`
	Upload        UploadConfig     `json:"upload"`
	CORSOrigins   []string         `json:"cors_origins"`
	ReconcileCron string           `json:"reconcile_cron"`
	// RateLimitSeconds throttles the upload and ask endpoints to one
	// request per window per caller. 0 disables the limiter.
	RateLimitSeconds int `json:"rate_limit_seconds"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type      string      `json:"type"`
	Dir       string      `json:"dir"`
	PublicURL string      `json:"public_url"`
	Data      interface{} `json:"data"`
}

type SearchConfig struct {
	Endpoint   string `json:"endpoint"`
	APIKey     string `json:"api_key"`
	Index      string `json:"index"`
	Indexer    string `json:"indexer"`
	APIVersion string `json:"api_version"`
}

type AIConfig struct {
	Provider             string      `json:"provider"`
	Data                 interface{} `json:"data"`
	CompletionDeployment string      `json:"completion_deployment"`
	EmbeddingDeployment  string      `json:"embedding_deployment"`
	EmbeddingFallbacks   []string    `json:"embedding_fallbacks"`
}

// QAConfig carries the tunables of the question pipeline and the status
// tracker. The grace periods are heuristics against real indexing latency,
// so they stay configurable instead of hard-coded.
type QAConfig struct {
	TopK                   int     `json:"top_k"`
	ProbePageSize          int     `json:"probe_page_size"`
	WildcardPageSize       int     `json:"wildcard_page_size"`
	RetryAttempts          int     `json:"retry_attempts"`
	RetryDelaySeconds      int     `json:"retry_delay_seconds"`
	RequestTimeoutSeconds  int     `json:"request_timeout_seconds"`
	ProcessingGraceSeconds int     `json:"processing_grace_seconds"`
	UploadGraceSeconds     int     `json:"upload_grace_seconds"`
	CacheSize              int     `json:"cache_size"`
	CacheTTLMinutes        int     `json:"cache_ttl_minutes"`
	SemanticCacheDistance  float64 `json:"semantic_cache_distance"`
}

type UploadConfig struct {
	MaxFileSize  int64    `json:"max_file_size"`
	AllowedTypes []string `json:"allowed_types"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.DB.DSN == "" && cfg.DB.Host == "" {
		return nil, fmt.Errorf("db.dsn or db.host is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		cfg.FileStore.Type = "local"
	}
	if cfg.Search.APIVersion == "" {
		cfg.Search.APIVersion = "2023-11-01"
	}
	if cfg.Search.Index == "" {
		cfg.Search.Index = "documents-index"
	}
	if cfg.Search.Indexer == "" {
		cfg.Search.Indexer = "documents-indexer"
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "azure"
	}
	if cfg.AI.Data == nil {
		return nil, fmt.Errorf("ai.data is required")
	}
	applyQADefaults(&cfg.QA)
	applyUploadDefaults(&cfg.Upload)
	return &cfg, nil
}

func applyQADefaults(qa *QAConfig) {
	if qa.TopK <= 0 {
		qa.TopK = 5
	}
	if qa.ProbePageSize <= 0 {
		qa.ProbePageSize = 100
	}
	if qa.WildcardPageSize <= 0 {
		qa.WildcardPageSize = 20
	}
	if qa.RetryAttempts <= 0 {
		qa.RetryAttempts = 2
	}
	if qa.RetryDelaySeconds <= 0 {
		qa.RetryDelaySeconds = 5
	}
	if qa.RequestTimeoutSeconds <= 0 {
		qa.RequestTimeoutSeconds = 20
	}
	if qa.ProcessingGraceSeconds <= 0 {
		qa.ProcessingGraceSeconds = 120
	}
	if qa.UploadGraceSeconds <= 0 {
		qa.UploadGraceSeconds = 60
	}
	if qa.CacheSize <= 0 {
		qa.CacheSize = 1024
	}
	if qa.CacheTTLMinutes <= 0 {
		qa.CacheTTLMinutes = 30
	}
	if qa.SemanticCacheDistance <= 0 {
		qa.SemanticCacheDistance = 0.1
	}
}

func applyUploadDefaults(up *UploadConfig) {
	if up.MaxFileSize <= 0 {
		up.MaxFileSize = 100 * 1024 * 1024
	}
	if len(up.AllowedTypes) == 0 {
		up.AllowedTypes = []string{".pdf", ".jpg", ".jpeg", ".png", ".docx"}
	}
}
