package stt

import (
	"fmt"
	"log"

	"audioscribe/internal/config"
)

// CreateProvider creates an STT provider from configuration
func CreateProvider(cfg config.ProviderConfig) (Provider, error) {
	switch cfg.Name {
	case "openai":
		if cfg.OpenAIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is not set")
		}
		log.Printf("[STT Factory] Creating OpenAI Whisper provider")
		return NewOpenAIProvider(cfg.OpenAIKey), nil
	case "http":
		if cfg.HTTPEndpoint == "" {
			return nil, fmt.Errorf("STT_HTTP_URL is not set")
		}
		log.Printf("[STT Factory] Creating generic HTTP provider for %s", cfg.HTTPEndpoint)
		return NewHTTPProvider(cfg.HTTPAPIKey, cfg.HTTPEndpoint), nil
	default:
		return nil, fmt.Errorf("unsupported STT provider: %s. Supported: openai, http", cfg.Name)
	}
}
