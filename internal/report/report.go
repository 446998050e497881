// Package report renders a finished result sequence into the supported
// output representations: a two-section CSV report, a flat text view of the
// successful transcriptions, and a structured record list.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"audioscribe/internal/model"
)

// csvHeader is the fixed per-task column order; it is part of the external
// contract and must not change between releases
var csvHeader = []string{
	"id",
	"filename",
	"transcription",
	"success",
	"error",
	"size_bytes",
	"processing_time_ms",
	"download_time_ms",
	"transcribed_at",
	"modified_at",
	"source",
}

// Batch bundles results with their summary for machine consumption
type Batch struct {
	Results []model.TranscriptionResult `json:"results"`
	Summary model.BatchSummary          `json:"summary"`
}

// NewBatch computes the summary for a result sequence at the given time
func NewBatch(results []model.TranscriptionResult, generatedAt time.Time) Batch {
	return Batch{
		Results: results,
		Summary: model.Summarize(results, generatedAt),
	}
}

// WriteCSV renders the tabular report: one row per task in task order,
// a blank line, then the summary section. Output is deterministic for a
// fixed result sequence apart from the generated_at field.
func (b Batch) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, r := range b.Results {
		row := []string{
			strconv.Itoa(i + 1),
			r.Identifier,
			r.Transcription,
			yesNo(r.Success),
			r.Error,
			strconv.FormatInt(r.SizeBytes, 10),
			strconv.FormatInt(r.ProcessingTimeMs, 10),
			optionalMs(r.DownloadTimeMs),
			r.TranscribedAt.Format(time.RFC3339),
			optionalTime(r.ModifiedAt),
			r.Location,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}

	if _, err := io.WriteString(w, "\n"); err != nil {
		return err
	}

	sw := csv.NewWriter(w)
	summaryRows := [][]string{
		{"metric", "value"},
		{"total_files", strconv.Itoa(b.Summary.TotalFiles)},
		{"successful", strconv.Itoa(b.Summary.Successful)},
		{"failed", strconv.Itoa(b.Summary.Failed)},
		{"success_rate_percent", fmt.Sprintf("%.1f", b.Summary.SuccessRate*100)},
		{"total_size_bytes", strconv.FormatInt(b.Summary.TotalSizeBytes, 10)},
		{"total_processing_time_ms", strconv.FormatInt(b.Summary.TotalProcessingTimeMs, 10)},
		{"generated_at", b.Summary.GeneratedAt.Format(time.RFC3339)},
	}
	if err := sw.WriteAll(summaryRows); err != nil {
		return fmt.Errorf("failed to write summary section: %w", err)
	}
	return sw.Error()
}

// PlainText returns the successful transcriptions in task order, separated
// by blank lines. Failed tasks are omitted here but still counted in the
// summary.
func (b Batch) PlainText() string {
	var texts []string
	for _, r := range b.Results {
		if r.Success && r.Transcription != "" {
			texts = append(texts, r.Transcription)
		}
	}
	if len(texts) == 0 {
		return ""
	}
	return strings.Join(texts, "\n\n") + "\n"
}

// SaveCSV writes the tabular report into folder, creating it if needed, and
// returns the file path. Files are named transcriptions_<timestamp>.csv.
func (b Batch) SaveCSV(folder string) (string, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("failed to create output folder: %w", err)
	}

	name := fmt.Sprintf("transcriptions_%s.csv", b.Summary.GeneratedAt.Format("20060102_150405"))
	path := filepath.Join(folder, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := b.WriteCSV(f); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}

	log.Printf("[Report] Saved CSV report: %s", path)
	return path, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func optionalMs(ms *int64) string {
	if ms == nil {
		return ""
	}
	return strconv.FormatInt(*ms, 10)
}

func optionalTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
