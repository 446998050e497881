package stt

// Result represents the outcome of a single provider call
type Result struct {
	Text        string // The transcribed text
	Provider    string // The provider used (e.g., "openai", "http")
	RawResponse string // Raw response from the provider (for debugging/logging)
}
