package model

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the closed set of failure classifications a task can end with.
// Every provider- or transport-specific error is normalized into one of these
// before it leaves the component that produced it.
type ErrorKind string

const (
	ErrUnsupportedFormat   ErrorKind = "unsupported_format"
	ErrFileTooLarge        ErrorKind = "file_too_large"
	ErrDownloadFailed      ErrorKind = "download_failed"
	ErrAcquisitionTimeout  ErrorKind = "acquisition_timeout"
	ErrProviderRateLimited ErrorKind = "provider_rate_limited"
	ErrProviderFailure     ErrorKind = "provider_failure"
	ErrCancelled           ErrorKind = "cancelled"
)

// ErrNoInput is the batch-level condition for an empty resolved task set.
// It is reported once per batch, never per task.
var ErrNoInput = errors.New("no audio input found")

// TaskError is a classified per-task failure. StatusCode is only set for
// HTTP-shaped failures and feeds retryability of download errors.
type TaskError struct {
	Kind       ErrorKind
	Message    string
	StatusCode int
	Err        error
}

func (e *TaskError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// NewTaskError builds a classified task error wrapping cause
func NewTaskError(kind ErrorKind, cause error, format string, args ...interface{}) *TaskError {
	return &TaskError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Err:     cause,
	}
}

// Retryable is the retry-vs-permanent policy. It is a pure function of the
// classified error so it can be tested apart from the dispatcher.
// Download failures are permanent unless the remote answered 429 or 503.
func Retryable(err *TaskError) bool {
	if err == nil {
		return false
	}
	switch err.Kind {
	case ErrAcquisitionTimeout, ErrProviderRateLimited:
		return true
	case ErrDownloadFailed:
		return err.StatusCode == http.StatusTooManyRequests ||
			err.StatusCode == http.StatusServiceUnavailable
	default:
		return false
	}
}

// AsTaskError extracts a *TaskError from an error chain, classifying anything
// unrecognized as a provider failure so callers never see raw provider errors
func AsTaskError(err error) *TaskError {
	var te *TaskError
	if errors.As(err, &te) {
		return te
	}
	return &TaskError{Kind: ErrProviderFailure, Err: err}
}
