package stt

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"audioscribe/internal/config"
	"audioscribe/internal/model"
)

func TestNormalizeOpenAIError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantKind model.ErrorKind
	}{
		{
			name:     "rate limit",
			err:      &openai.APIError{HTTPStatusCode: 429, Message: "rate limit exceeded"},
			wantKind: model.ErrProviderRateLimited,
		},
		{
			name:     "server error",
			err:      &openai.APIError{HTTPStatusCode: 500, Message: "internal error"},
			wantKind: model.ErrProviderFailure,
		},
		{
			name:     "bad request",
			err:      &openai.APIError{HTTPStatusCode: 400, Message: "invalid file"},
			wantKind: model.ErrProviderFailure,
		},
		{
			name:     "wrapped api error",
			err:      fmt.Errorf("request failed: %w", &openai.APIError{HTTPStatusCode: 429}),
			wantKind: model.ErrProviderRateLimited,
		},
		{
			name:     "deadline exceeded",
			err:      context.DeadlineExceeded,
			wantKind: model.ErrAcquisitionTimeout,
		},
		{
			name:     "unrecognized error",
			err:      errors.New("connection reset"),
			wantKind: model.ErrProviderFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeOpenAIError(tt.err)
			if got.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", got.Kind, tt.wantKind)
			}
		})
	}
}

func TestHTTPProviderTranscribe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("api-key") != "test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.Header.Get("x-language") != "pt" {
			t.Errorf("language header = %q, want pt", r.Header.Get("x-language"))
		}
		fmt.Fprint(w, `{"text": " hello world "}`)
	}))
	defer srv.Close()

	p := NewHTTPProvider("test-key", srv.URL)
	result, err := p.Transcribe(context.Background(), Request{
		Audio:    []byte("audio"),
		Filename: "clip.mp3",
		Language: "pt",
	})
	if err != nil {
		t.Fatalf("Transcribe() failed: %v", err)
	}
	if result.Text != "hello world" {
		t.Errorf("text = %q, want trimmed transcript", result.Text)
	}
	if result.Provider != "http" {
		t.Errorf("provider = %s", result.Provider)
	}
}

func TestHTTPProviderErrors(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind model.ErrorKind
	}{
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			},
			wantKind: model.ErrProviderRateLimited,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			},
			wantKind: model.ErrProviderFailure,
		},
		{
			name: "api-level error code",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"errorCode": 7, "message": "no speech detected"}`)
			},
			wantKind: model.ErrProviderFailure,
		},
		{
			name: "garbage response",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, "<html>not json</html>")
			},
			wantKind: model.ErrProviderFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			p := NewHTTPProvider("test-key", srv.URL)
			_, err := p.Transcribe(context.Background(), Request{Audio: []byte("audio")})
			if err == nil {
				t.Fatal("expected error")
			}
			if kind := model.AsTaskError(err).Kind; kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", kind, tt.wantKind)
			}
		})
	}
}

func TestCreateProvider(t *testing.T) {
	tests := []struct {
		name     string
		cfg      config.ProviderConfig
		wantName string
		wantErr  bool
	}{
		{
			name:     "openai",
			cfg:      config.ProviderConfig{Name: "openai", OpenAIKey: "sk-test"},
			wantName: "openai",
		},
		{
			name:     "http",
			cfg:      config.ProviderConfig{Name: "http", HTTPEndpoint: "https://stt.example.com"},
			wantName: "http",
		},
		{
			name:    "openai without key",
			cfg:     config.ProviderConfig{Name: "openai"},
			wantErr: true,
		},
		{
			name:    "unknown provider",
			cfg:     config.ProviderConfig{Name: "deepgram"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := CreateProvider(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateProvider() failed: %v", err)
			}
			if p.Name() != tt.wantName {
				t.Errorf("provider name = %s, want %s", p.Name(), tt.wantName)
			}
		})
	}
}
