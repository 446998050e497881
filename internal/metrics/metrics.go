// Package metrics wires Prometheus instrumentation for the batch core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the transcription service
type Metrics struct {
	// Batch metrics
	BatchesStarted   prometheus.Counter
	BatchesCompleted prometheus.Counter

	// Task metrics
	TasksProcessed *prometheus.CounterVec // labeled by outcome
	TasksInFlight  prometheus.Gauge
	ProcessingTime prometheus.Histogram
	DownloadTime   prometheus.Histogram

	// Provider metrics
	ProviderCalls   prometheus.Counter
	ProviderRetries prometheus.Counter
}

// New creates all metrics registered against reg. Pass
// prometheus.DefaultRegisterer in production.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		BatchesStarted: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioscribe_batches_started_total",
			Help: "Total number of batch runs started",
		}),
		BatchesCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioscribe_batches_completed_total",
			Help: "Total number of batch runs completed",
		}),
		TasksProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "audioscribe_tasks_processed_total",
			Help: "Total number of tasks processed, labeled by outcome",
		}, []string{"outcome"}),
		TasksInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "audioscribe_tasks_in_flight",
			Help: "Current number of tasks in the acquire+invoke pipeline",
		}),
		ProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audioscribe_task_processing_seconds",
			Help:    "Per-task processing time (acquire + invoke)",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		DownloadTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "audioscribe_download_seconds",
			Help:    "Remote acquisition time",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		ProviderCalls: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioscribe_provider_calls_total",
			Help: "Total number of provider invocations",
		}),
		ProviderRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "audioscribe_provider_retries_total",
			Help: "Total number of task retry attempts",
		}),
	}
}
