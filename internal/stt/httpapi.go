package stt

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"audioscribe/internal/model"
)

// HTTPProvider implements STT against a generic raw-POST transcription
// endpoint: audio bytes in the request body, JSON transcript back
type HTTPProvider struct {
	apiKey string
	url    string
	client *http.Client
}

// NewHTTPProvider creates a new generic HTTP STT provider
func NewHTTPProvider(apiKey, url string) *HTTPProvider {
	return &HTTPProvider{
		apiKey: apiKey,
		url:    url,
		client: &http.Client{Timeout: 90 * time.Second},
	}
}

// Name returns the provider name
func (p *HTTPProvider) Name() string {
	return "http"
}

// httpSTTResponse represents the endpoint's JSON response
type httpSTTResponse struct {
	Text      string `json:"text"`
	ErrorCode int    `json:"errorCode,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Transcribe POSTs the audio bytes to the endpoint and returns the transcript
func (p *HTTPProvider) Transcribe(ctx context.Context, req Request) (*Result, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(req.Audio))
	if err != nil {
		return nil, model.NewTaskError(model.ErrProviderFailure, err, "failed to create request: %v", err)
	}

	httpReq.Header.Set("api-key", p.apiKey)
	httpReq.Header.Set("Content-Type", "application/octet-stream")
	if req.Language != "" {
		httpReq.Header.Set("x-language", req.Language)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, model.NewTaskError(model.ErrAcquisitionTimeout, err, "provider call timed out")
		}
		return nil, model.NewTaskError(model.ErrProviderFailure, err, "failed to send request: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewTaskError(model.ErrProviderFailure, err, "failed to read response body: %v", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &model.TaskError{
			Kind:       model.ErrProviderRateLimited,
			Message:    fmt.Sprintf("provider rate limited: %s", string(body)),
			StatusCode: resp.StatusCode,
		}
	}
	if resp.StatusCode != http.StatusOK {
		log.Printf("[HTTP STT] API error: Status %d, Body: %s", resp.StatusCode, string(body))
		return nil, &model.TaskError{
			Kind:       model.ErrProviderFailure,
			Message:    fmt.Sprintf("API returned status %d", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	var sttResp httpSTTResponse
	if err := json.Unmarshal(body, &sttResp); err != nil {
		log.Printf("[HTTP STT] Failed to parse response. Raw body: %s", string(body))
		return nil, model.NewTaskError(model.ErrProviderFailure, err, "failed to parse response: %v", err)
	}

	if sttResp.ErrorCode != 0 {
		return nil, model.NewTaskError(model.ErrProviderFailure, nil,
			"API error %d: %s", sttResp.ErrorCode, sttResp.Message)
	}

	transcript := strings.TrimSpace(sttResp.Text)
	log.Printf("[HTTP STT] Transcription successful: length=%d", len(transcript))

	return &Result{
		Text:        transcript,
		Provider:    p.Name(),
		RawResponse: string(body),
	}, nil
}
