// Package acquire produces raw audio bytes for a task. Local files are read
// through a scoped handle; remote URLs are downloaded into a temporary file
// that is removed on every exit path.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"audioscribe/internal/model"
)

// Payload carries the acquired content for one task
type Payload struct {
	Data           []byte
	SizeBytes      int64
	DownloadTimeMs *int64 // remote tasks only
}

// Acquirer fetches task content subject to a size ceiling and a per-download
// timeout. One Acquirer is shared by all workers of a batch run.
type Acquirer struct {
	client          *http.Client
	maxBytes        int64
	downloadTimeout time.Duration
	tempDir         string
}

// Options configures an Acquirer
type Options struct {
	MaxBytes        int64
	DownloadTimeout time.Duration
	TempDir         string // empty means the OS default
	Client          *http.Client
}

// New creates an Acquirer
func New(opts Options) *Acquirer {
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Acquirer{
		client:          client,
		maxBytes:        opts.MaxBytes,
		downloadTimeout: opts.DownloadTimeout,
		tempDir:         opts.TempDir,
	}
}

// Acquire resolves the bytes for one task. Errors are always classified
// *model.TaskError values.
func (a *Acquirer) Acquire(ctx context.Context, task model.TranscriptionTask) (*Payload, error) {
	switch task.Source {
	case model.SourceLocalFile:
		return a.acquireLocal(task)
	case model.SourceRemoteURL:
		return a.acquireRemote(ctx, task)
	default:
		return nil, model.NewTaskError(model.ErrDownloadFailed, nil, "unknown source type: %s", task.Source)
	}
}

// acquireLocal reads a local file, checking the size ceiling from the file
// stat before any content is read
func (a *Acquirer) acquireLocal(task model.TranscriptionTask) (*Payload, error) {
	f, err := os.Open(task.Location)
	if err != nil {
		return nil, model.NewTaskError(model.ErrDownloadFailed, err, "failed to open file: %v", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, model.NewTaskError(model.ErrDownloadFailed, err, "failed to stat file: %v", err)
	}
	if stat.Size() > a.maxBytes {
		return nil, model.NewTaskError(model.ErrFileTooLarge, nil,
			"file too large: %.2fMB (max: %.0fMB)", mb(stat.Size()), mb(a.maxBytes))
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, model.NewTaskError(model.ErrDownloadFailed, err, "failed to read file: %v", err)
	}

	return &Payload{Data: data, SizeBytes: int64(len(data))}, nil
}

// acquireRemote downloads a URL into a temp file and reads it back. The temp
// file is removed through defers, so success, failure, timeout and
// cancellation all leave no residue behind.
func (a *Acquirer) acquireRemote(ctx context.Context, task model.TranscriptionTask) (*Payload, error) {
	start := time.Now()

	dlCtx, cancel := context.WithTimeout(ctx, a.downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(dlCtx, http.MethodGet, task.Location, nil)
	if err != nil {
		return nil, model.NewTaskError(model.ErrDownloadFailed, err, "malformed URL: %v", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, model.NewTaskError(model.ErrAcquisitionTimeout, err,
				"download timeout after %s", a.downloadTimeout)
		}
		return nil, model.NewTaskError(model.ErrDownloadFailed, err, "download failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &model.TaskError{
			Kind:       model.ErrDownloadFailed,
			Message:    fmt.Sprintf("HTTP error %d downloading file", resp.StatusCode),
			StatusCode: resp.StatusCode,
		}
	}

	// Reject oversized transfers up front when the server declares a length.
	if resp.ContentLength > a.maxBytes {
		return nil, model.NewTaskError(model.ErrFileTooLarge, nil,
			"file too large: %.2fMB (max: %.0fMB)", mb(resp.ContentLength), mb(a.maxBytes))
	}

	tmp, err := os.CreateTemp(a.tempDir, "audioscribe_*."+task.Format)
	if err != nil {
		return nil, model.NewTaskError(model.ErrDownloadFailed, err, "failed to create temp file: %v", err)
	}
	defer func() {
		tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil {
			log.Printf("[Acquirer] Failed to delete temp file %s: %v", tmp.Name(), err)
		}
	}()

	// Copy at most one byte past the ceiling so an oversized stream is
	// aborted instead of buffered whole.
	written, err := io.Copy(tmp, io.LimitReader(resp.Body, a.maxBytes+1))
	if err != nil {
		if isTimeout(err) {
			return nil, model.NewTaskError(model.ErrAcquisitionTimeout, err,
				"download timeout after %s", a.downloadTimeout)
		}
		return nil, model.NewTaskError(model.ErrDownloadFailed, err, "download interrupted: %v", err)
	}
	if written > a.maxBytes {
		return nil, model.NewTaskError(model.ErrFileTooLarge, nil,
			"file too large: more than %.0fMB streamed", mb(a.maxBytes))
	}

	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, model.NewTaskError(model.ErrDownloadFailed, err, "failed to rewind temp file: %v", err)
	}
	data, err := io.ReadAll(tmp)
	if err != nil {
		return nil, model.NewTaskError(model.ErrDownloadFailed, err, "failed to read temp file: %v", err)
	}

	downloadMs := time.Since(start).Milliseconds()
	log.Printf("[Acquirer] Downloaded %d bytes in %dms: %s", written, downloadMs, task.Identifier)

	return &Payload{
		Data:           data,
		SizeBytes:      written,
		DownloadTimeMs: &downloadMs,
	}, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

func mb(n int64) float64 {
	return float64(n) / (1024 * 1024)
}
