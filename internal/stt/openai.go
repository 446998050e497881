package stt

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"audioscribe/internal/model"
)

// OpenAIProvider implements STT using the OpenAI Whisper API
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI Whisper provider
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	return &OpenAIProvider{client: openai.NewClient(apiKey)}
}

// NewOpenAIProviderWithClient creates a provider around an existing client
func NewOpenAIProviderWithClient(client *openai.Client) *OpenAIProvider {
	return &OpenAIProvider{client: client}
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Transcribe sends the audio to the Whisper API and returns the transcript.
// Provider errors are normalized into the closed error taxonomy.
func (p *OpenAIProvider) Transcribe(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()

	audioReq := openai.AudioRequest{
		Model:    openai.Whisper1,
		Reader:   bytes.NewReader(req.Audio),
		FilePath: req.Filename,
		Format:   openai.AudioResponseFormatText,
	}
	if req.Language != "" {
		audioReq.Language = req.Language
		log.Printf("[OpenAI STT] Language specified: %s", req.Language)
	}

	resp, err := p.client.CreateTranscription(ctx, audioReq)
	if err != nil {
		return nil, normalizeOpenAIError(err)
	}

	transcript := strings.TrimSpace(resp.Text)
	log.Printf("[OpenAI STT] Transcription successful: length=%d, duration=%v",
		len(transcript), time.Since(start))

	return &Result{
		Text:        transcript,
		Provider:    p.Name(),
		RawResponse: resp.Text,
	}, nil
}

// normalizeOpenAIError maps OpenAI client errors into the error taxonomy so
// callers never depend on provider-specific error shapes
func normalizeOpenAIError(err error) *model.TaskError {
	if errors.Is(err, context.DeadlineExceeded) {
		return model.NewTaskError(model.ErrAcquisitionTimeout, err, "provider call timed out")
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return &model.TaskError{
				Kind:       model.ErrProviderRateLimited,
				Message:    apiErr.Message,
				StatusCode: apiErr.HTTPStatusCode,
				Err:        err,
			}
		default:
			return &model.TaskError{
				Kind:       model.ErrProviderFailure,
				Message:    apiErr.Message,
				StatusCode: apiErr.HTTPStatusCode,
				Err:        err,
			}
		}
	}

	return model.NewTaskError(model.ErrProviderFailure, err, "OpenAI API error: %v", err)
}
