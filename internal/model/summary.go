package model

import "time"

// BatchSummary is derived from a finished result sequence and never mutated
// independently of it.
type BatchSummary struct {
	TotalFiles            int       `json:"total_files"`
	Successful            int       `json:"successful"`
	Failed                int       `json:"failed"`
	SuccessRate           float64   `json:"success_rate"`
	TotalSizeBytes        int64     `json:"total_size_bytes"`
	TotalProcessingTimeMs int64     `json:"total_processing_time_ms"`
	GeneratedAt           time.Time `json:"generated_at"`
}

// Summarize computes the batch summary. It is a pure function of the result
// sequence and the supplied generation time, so recomputing is idempotent.
func Summarize(results []TranscriptionResult, generatedAt time.Time) BatchSummary {
	summary := BatchSummary{
		TotalFiles:  len(results),
		GeneratedAt: generatedAt,
	}

	for _, r := range results {
		if r.Success {
			summary.Successful++
		} else {
			summary.Failed++
		}
		summary.TotalSizeBytes += r.SizeBytes
		summary.TotalProcessingTimeMs += r.ProcessingTimeMs
	}

	if summary.TotalFiles > 0 {
		summary.SuccessRate = float64(summary.Successful) / float64(summary.TotalFiles)
	}

	return summary
}
