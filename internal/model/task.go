package model

import (
	"strings"
	"time"
)

// SourceType identifies where a task's audio comes from
type SourceType string

const (
	SourceLocalFile SourceType = "local"
	SourceRemoteURL SourceType = "remote"
)

// SupportedFormats is the audio format allow-set accepted by the Whisper API
var SupportedFormats = map[string]bool{
	"mp3":  true,
	"mp4":  true,
	"mpeg": true,
	"mpga": true,
	"m4a":  true,
	"wav":  true,
	"webm": true,
	"ogg":  true,
	"flac": true,
}

// FormatSupported reports whether ext (without leading dot, any case) is in
// the allow-set
func FormatSupported(ext string) bool {
	return SupportedFormats[normalizeExt(ext)]
}

// FormatList returns the allow-set as a sorted-insertion slice for display
func FormatList() []string {
	return []string{"flac", "m4a", "mp3", "mp4", "mpeg", "mpga", "ogg", "wav", "webm"}
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// TranscriptionTask is one unit of work produced by the resolver.
// Identifier is the original filename or URL and is what reports key on.
// Location is the full path for local tasks or the URL for remote tasks.
type TranscriptionTask struct {
	Identifier string     `json:"identifier"`
	Source     SourceType `json:"source"`
	Location   string     `json:"location"`
	Format     string     `json:"format"`
	SizeBytes  int64      `json:"size_bytes"`
	ModifiedAt *time.Time `json:"modified_at,omitempty"`
}
