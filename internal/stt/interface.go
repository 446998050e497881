package stt

import "context"

// Request carries the acquired audio for one provider call
type Request struct {
	Audio    []byte
	Filename string
	Format   string
	Language string // ISO-639-1 or empty for auto-detect
}

// Provider defines the interface for speech-to-text providers. Transcribe
// performs exactly one call: retries belong to the dispatcher, not here.
// Errors are always classified *model.TaskError values.
type Provider interface {
	Transcribe(ctx context.Context, req Request) (*Result, error)

	// Name returns the name of the provider (e.g., "openai", "http")
	Name() string
}
