package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full service configuration. The batch core treats it as an
// immutable input for a given run. Values come from environment variables
// with defaults; an optional YAML file referenced by CONFIG_FILE overrides
// the environment.
type Config struct {
	Port         string `yaml:"port"`
	OutputFolder string `yaml:"output_folder"`

	Provider ProviderConfig `yaml:"provider"`
	Batch    BatchConfig    `yaml:"batch"`
}

// ProviderConfig selects and configures the transcription provider
type ProviderConfig struct {
	Name            string `yaml:"name"` // "openai" or "http"
	OpenAIKey       string `yaml:"openai_key"`
	HTTPEndpoint    string `yaml:"http_endpoint"` // only for the http provider
	HTTPAPIKey      string `yaml:"http_api_key"`
	DefaultLanguage string `yaml:"default_language"` // ISO-639-1 or empty for auto-detect
}

// BatchConfig carries the dispatcher and acquisition limits
type BatchConfig struct {
	MaxFileSizeMB      int `yaml:"max_file_size_mb"`
	APIDelayMs         int `yaml:"api_delay_ms"` // min spacing between provider calls
	Concurrency        int `yaml:"concurrency"`  // worker pool size
	TaskTimeoutSec     int `yaml:"task_timeout_seconds"`
	DownloadTimeoutSec int `yaml:"download_timeout_seconds"`
	MaxRetries         int `yaml:"max_retries"`
	RetryBackoffMs     int `yaml:"retry_backoff_ms"`
}

// Load builds configuration from environment variables, applying the YAML
// overlay from CONFIG_FILE when set, and validates the result
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		OutputFolder: getEnv("OUTPUT_FOLDER", "./output"),
		Provider: ProviderConfig{
			Name:            getEnv("STT_PROVIDER", "openai"),
			OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
			HTTPEndpoint:    os.Getenv("STT_HTTP_URL"),
			HTTPAPIKey:      os.Getenv("STT_HTTP_API_KEY"),
			DefaultLanguage: os.Getenv("DEFAULT_LANGUAGE"),
		},
		Batch: BatchConfig{
			MaxFileSizeMB:      getEnvInt("MAX_FILE_SIZE_MB", 25),
			APIDelayMs:         getEnvInt("API_DELAY_MS", 500),
			Concurrency:        getEnvInt("CONCURRENCY", 2),
			TaskTimeoutSec:     getEnvInt("TASK_TIMEOUT_SECONDS", 300),
			DownloadTimeoutSec: getEnvInt("DOWNLOAD_TIMEOUT_SECONDS", 120),
			MaxRetries:         getEnvInt("MAX_RETRIES", 2),
			RetryBackoffMs:     getEnvInt("RETRY_BACKOFF_MS", 1000),
		},
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// applyFile overlays a YAML config file on top of the env-derived values
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the whole configuration
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port cannot be empty")
	}
	if err := c.Provider.Validate(); err != nil {
		return fmt.Errorf("provider config: %w", err)
	}
	if err := c.Batch.Validate(); err != nil {
		return fmt.Errorf("batch config: %w", err)
	}
	return nil
}

// Validate validates provider selection and credentials
func (p *ProviderConfig) Validate() error {
	switch p.Name {
	case "openai":
		if p.OpenAIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required when STT_PROVIDER is 'openai'. Set it in the environment or in a .env file")
		}
	case "http":
		if p.HTTPEndpoint == "" {
			return fmt.Errorf("STT_HTTP_URL is required when STT_PROVIDER is 'http'")
		}
	default:
		return fmt.Errorf("unsupported STT provider: %s. Supported: openai, http", p.Name)
	}

	if p.DefaultLanguage != "" && len(p.DefaultLanguage) != 2 {
		return fmt.Errorf("default_language must be a 2-letter ISO-639-1 code, got '%s'", p.DefaultLanguage)
	}

	return nil
}

// Validate validates the batch limits
func (b *BatchConfig) Validate() error {
	if b.MaxFileSizeMB < 1 {
		return fmt.Errorf("max_file_size_mb must be at least 1, got %d", b.MaxFileSizeMB)
	}
	if b.APIDelayMs < 0 {
		return fmt.Errorf("api_delay_ms cannot be negative, got %d", b.APIDelayMs)
	}
	if b.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", b.Concurrency)
	}
	if b.TaskTimeoutSec < 1 {
		return fmt.Errorf("task_timeout_seconds must be at least 1, got %d", b.TaskTimeoutSec)
	}
	if b.DownloadTimeoutSec < 1 {
		return fmt.Errorf("download_timeout_seconds must be at least 1, got %d", b.DownloadTimeoutSec)
	}
	if b.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", b.MaxRetries)
	}
	if b.RetryBackoffMs < 0 {
		return fmt.Errorf("retry_backoff_ms cannot be negative, got %d", b.RetryBackoffMs)
	}
	return nil
}

// MaxFileSizeBytes returns the size ceiling in bytes
func (b *BatchConfig) MaxFileSizeBytes() int64 {
	return int64(b.MaxFileSizeMB) * 1024 * 1024
}

// APIDelay returns the min inter-call spacing as a time.Duration
func (b *BatchConfig) APIDelay() time.Duration {
	return time.Duration(b.APIDelayMs) * time.Millisecond
}

// TaskTimeout returns the per-task budget as a time.Duration
func (b *BatchConfig) TaskTimeout() time.Duration {
	return time.Duration(b.TaskTimeoutSec) * time.Second
}

// DownloadTimeout returns the per-download budget as a time.Duration
func (b *BatchConfig) DownloadTimeout() time.Duration {
	return time.Duration(b.DownloadTimeoutSec) * time.Second
}

// RetryBackoff returns the base retry backoff as a time.Duration
func (b *BatchConfig) RetryBackoff() time.Duration {
	return time.Duration(b.RetryBackoffMs) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
