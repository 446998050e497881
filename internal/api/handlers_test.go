package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"audioscribe/internal/config"
	"audioscribe/internal/metrics"
	"audioscribe/internal/storage"
	"audioscribe/internal/stt"
)

type scriptedProvider struct {
	transcript string
}

func (p *scriptedProvider) Name() string { return "fake" }

func (p *scriptedProvider) Transcribe(ctx context.Context, req stt.Request) (*stt.Result, error) {
	return &stt.Result{Text: p.transcript + " " + req.Filename, Provider: "fake"}, nil
}

func testRouter(t *testing.T) (*gin.Engine, *Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		Port:         "8080",
		OutputFolder: t.TempDir(),
		Provider:     config.ProviderConfig{Name: "openai", OpenAIKey: "sk-test"},
		Batch: config.BatchConfig{
			MaxFileSizeMB:      25,
			APIDelayMs:         1,
			Concurrency:        2,
			TaskTimeoutSec:     10,
			DownloadTimeoutSec: 5,
			MaxRetries:         0,
			RetryBackoffMs:     1,
		},
	}

	svc := NewService(cfg, &scriptedProvider{transcript: "transcript of"},
		storage.NewStore(), metrics.New(prometheus.NewRegistry()))
	r := gin.New()
	svc.RegisterRoutes(r)
	return r, svc
}

func audioServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("fake-audio"))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(r *gin.Engine, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTranscribeBatch(t *testing.T) {
	r, _ := testRouter(t)
	srv := audioServer(t)

	body := fmt.Sprintf(`{"audio_urls": ["%s/a.mp3", "%s/b.wav"], "language": "pt"}`, srv.URL, srv.URL)
	w := postJSON(r, "/api/transcribe/batch", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			BatchID string `json:"batch_id"`
			Summary struct {
				TotalFiles  int     `json:"total_files"`
				Successful  int     `json:"successful"`
				SuccessRate float64 `json:"success_rate"`
			} `json:"summary"`
			Results []struct {
				Identifier    string `json:"identifier"`
				Success       bool   `json:"success"`
				Transcription string `json:"transcription"`
			} `json:"results"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}

	if !resp.Success || resp.Data.BatchID == "" {
		t.Fatalf("unexpected envelope: %s", w.Body.String())
	}
	if resp.Data.Summary.TotalFiles != 2 || resp.Data.Summary.Successful != 2 {
		t.Errorf("summary = %+v", resp.Data.Summary)
	}
	if resp.Data.Results[0].Identifier != "a.mp3" || resp.Data.Results[1].Identifier != "b.wav" {
		t.Errorf("result order broken: %+v", resp.Data.Results)
	}
	if resp.Data.Results[0].Transcription != "transcript of a.mp3" {
		t.Errorf("transcription = %q", resp.Data.Results[0].Transcription)
	}
}

func TestTranscribeBatchTooManyURLs(t *testing.T) {
	r, _ := testRouter(t)

	urls := make([]string, 11)
	for i := range urls {
		urls[i] = fmt.Sprintf(`"https://example.com/clip%d.mp3"`, i)
	}
	body := fmt.Sprintf(`{"audio_urls": [%s]}`, strings.Join(urls, ","))

	w := postJSON(r, "/api/transcribe/batch", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for more than 10 URLs", w.Code)
	}
}

func TestTranscribeBatchBadLanguage(t *testing.T) {
	r, _ := testRouter(t)

	w := postJSON(r, "/api/transcribe/batch",
		`{"audio_urls": ["https://example.com/a.mp3"], "language": "POR"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for bad language code", w.Code)
	}
}

func TestTranscribeBatchCSVFormat(t *testing.T) {
	r, _ := testRouter(t)
	srv := audioServer(t)

	body := fmt.Sprintf(`{"audio_urls": ["%s/a.mp3"]}`, srv.URL)
	w := postJSON(r, "/api/transcribe/batch?format=csv", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Errorf("content type = %s", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "id,filename,transcription,success,") {
		t.Errorf("body is not the tabular report: %s", w.Body.String())
	}
}

func TestTranscribeBatchTextFormat(t *testing.T) {
	r, _ := testRouter(t)
	srv := audioServer(t)

	body := fmt.Sprintf(`{"audio_urls": ["%s/a.mp3", "%s/b.mp3"]}`, srv.URL, srv.URL)
	w := postJSON(r, "/api/transcribe/batch?format=text", body)

	want := "transcript of a.mp3\n\ntranscript of b.mp3\n"
	if w.Body.String() != want {
		t.Errorf("text view = %q, want %q", w.Body.String(), want)
	}
}

func TestTranscribeFolderNoInput(t *testing.T) {
	r, _ := testRouter(t)

	body := fmt.Sprintf(`{"folder": "%s"}`, t.TempDir())
	w := postJSON(r, "/api/transcribe/folder", body)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422 for the no-input condition", w.Code)
	}
	if !strings.Contains(w.Body.String(), "no_input_found") {
		t.Errorf("body missing error kind: %s", w.Body.String())
	}
}

func TestGetBatchAfterRun(t *testing.T) {
	r, _ := testRouter(t)
	srv := audioServer(t)

	body := fmt.Sprintf(`{"audio_urls": ["%s/a.mp3"]}`, srv.URL)
	w := postJSON(r, "/api/transcribe/batch", body)

	var resp struct {
		Data struct {
			BatchID string `json:"batch_id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/batches/"+resp.Data.BatchID, nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"completed"`) {
		t.Errorf("batch record not completed: %s", rec.Body.String())
	}
}

func TestGetBatchMissing(t *testing.T) {
	r, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/batches/unknown", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	r, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Status           string   `json:"status"`
		Provider         string   `json:"provider"`
		SupportedFormats []string `json:"supported_formats"`
		MaxFileSizeMB    int      `json:"max_file_size_mb"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "healthy" || resp.Provider != "fake" {
		t.Errorf("health = %+v", resp)
	}
	if len(resp.SupportedFormats) != 9 || resp.MaxFileSizeMB != 25 {
		t.Errorf("capability fields = %+v", resp)
	}
}

func TestFormats(t *testing.T) {
	r, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/formats", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, format := range []string{"mp3", "wav", "flac", "webm"} {
		if !strings.Contains(rec.Body.String(), format) {
			t.Errorf("formats response missing %s", format)
		}
	}
}

func TestTranscribeFolderSavesReport(t *testing.T) {
	r, svc := testRouter(t)

	audioDir := t.TempDir()
	writeAudio := func(name string) {
		if err := writeTestFile(audioDir, name); err != nil {
			t.Fatal(err)
		}
	}
	writeAudio("a.mp3")
	writeAudio("b.wav")

	body := fmt.Sprintf(`{"folder": %q, "save_report": true}`, audioDir)
	w := postJSON(r, "/api/transcribe/folder", body)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			BatchID    string `json:"batch_id"`
			ReportPath string `json:"report_path"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.ReportPath == "" {
		t.Fatal("expected a saved report path")
	}
	if !strings.HasPrefix(resp.Data.ReportPath, svc.cfg.OutputFolder) {
		t.Errorf("report path %s is outside the output folder", resp.Data.ReportPath)
	}

	rec, ok := svc.store.Get(resp.Data.BatchID)
	if !ok || rec.ReportPath != resp.Data.ReportPath {
		t.Error("stored record does not carry the report path")
	}
}

func postUpload(t *testing.T, r *gin.Engine, field, filename string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write([]byte("fake-audio")); err != nil {
		t.Fatal(err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTranscribeUpload(t *testing.T) {
	r, _ := testRouter(t)

	w := postUpload(t, r, "audio_file", "memo.mp3")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			Summary struct {
				TotalFiles int `json:"total_files"`
				Successful int `json:"successful"`
			} `json:"summary"`
			Results []struct {
				Identifier    string `json:"identifier"`
				Transcription string `json:"transcription"`
			} `json:"results"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Data.Summary.TotalFiles != 1 || resp.Data.Summary.Successful != 1 {
		t.Fatalf("summary = %+v", resp.Data.Summary)
	}
	if resp.Data.Results[0].Identifier != "memo.mp3" {
		t.Errorf("identifier = %s", resp.Data.Results[0].Identifier)
	}
	if resp.Data.Results[0].Transcription != "transcript of memo.mp3" {
		t.Errorf("transcription = %q", resp.Data.Results[0].Transcription)
	}
}

func TestTranscribeUploadAltFieldName(t *testing.T) {
	r, _ := testRouter(t)

	if w := postUpload(t, r, "file", "memo.wav"); w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestTranscribeUploadUnsupportedFormat(t *testing.T) {
	r, _ := testRouter(t)

	w := postUpload(t, r, "audio_file", "notes.txt")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for unsupported format", w.Code)
	}
}

func TestTranscribeUploadMissingFile(t *testing.T) {
	r, _ := testRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/transcribe", strings.NewReader(""))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 when no file is attached", w.Code)
	}
}

func writeTestFile(dir, name string) error {
	return os.WriteFile(filepath.Join(dir, name), []byte("fake-audio"), 0o644)
}
