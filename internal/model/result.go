package model

import "time"

// TranscriptionResult is the immutable outcome of one task. Exactly one
// result exists per task, emitted in the same order as the input sequence.
// Success implies ErrorKind is empty and Transcription may be non-empty;
// failure implies Transcription is empty.
type TranscriptionResult struct {
	Identifier       string     `json:"identifier"`
	Success          bool       `json:"success"`
	Transcription    string     `json:"transcription"`
	ErrorKind        ErrorKind  `json:"error_kind,omitempty"`
	Error            string     `json:"error,omitempty"`
	SizeBytes        int64      `json:"size_bytes"`
	ProcessingTimeMs int64      `json:"processing_time_ms"`
	DownloadTimeMs   *int64     `json:"download_time_ms,omitempty"`
	TranscribedAt    time.Time  `json:"transcribed_at"`
	ModifiedAt       *time.Time `json:"modified_at,omitempty"`
	Location         string     `json:"location"`
}

// SuccessResult builds a successful result for a task
func SuccessResult(task TranscriptionTask, text string, processingMs int64) TranscriptionResult {
	return TranscriptionResult{
		Identifier:       task.Identifier,
		Success:          true,
		Transcription:    text,
		SizeBytes:        task.SizeBytes,
		ProcessingTimeMs: processingMs,
		TranscribedAt:    time.Now(),
		ModifiedAt:       task.ModifiedAt,
		Location:         task.Location,
	}
}

// FailureResult builds a failed result for a task from a classified error
func FailureResult(task TranscriptionTask, taskErr *TaskError, processingMs int64) TranscriptionResult {
	return TranscriptionResult{
		Identifier:       task.Identifier,
		Success:          false,
		ErrorKind:        taskErr.Kind,
		Error:            taskErr.Error(),
		SizeBytes:        task.SizeBytes,
		ProcessingTimeMs: processingMs,
		TranscribedAt:    time.Now(),
		ModifiedAt:       task.ModifiedAt,
		Location:         task.Location,
	}
}
