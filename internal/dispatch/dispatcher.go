// Package dispatch runs a batch of transcription tasks through acquisition
// and the provider while honoring the concurrency ceiling, the minimum
// spacing between provider calls, per-task timeouts and bounded retry.
package dispatch

import (
	"context"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"audioscribe/internal/acquire"
	"audioscribe/internal/metrics"
	"audioscribe/internal/model"
	"audioscribe/internal/stt"
)

// Options carries the scheduling policy for one batch run
type Options struct {
	Concurrency  int           // max tasks in the acquire+invoke pipeline
	CallInterval time.Duration // min spacing between provider call starts
	TaskTimeout  time.Duration // acquire + invoke budget per task
	MaxRetries   int           // retries after the first attempt, transient errors only
	RetryBackoff time.Duration // base backoff, multiplied by the attempt number
}

// Dispatcher executes batches. One task failure never aborts siblings: the
// dispatcher emits exactly one result per input task, in input order.
type Dispatcher struct {
	acquirer *acquire.Acquirer
	provider stt.Provider
	opts     Options
	metrics  *metrics.Metrics // optional
}

// New creates a Dispatcher
func New(acquirer *acquire.Acquirer, provider stt.Provider, opts Options) *Dispatcher {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	return &Dispatcher{acquirer: acquirer, provider: provider, opts: opts}
}

// WithMetrics attaches Prometheus instrumentation
func (d *Dispatcher) WithMetrics(m *metrics.Metrics) *Dispatcher {
	d.metrics = m
	return d
}

// Run processes the tasks and returns one result per task, order-preserved.
// Cancelling ctx stops task admission; tasks already running finish or time
// out, and their results are kept. Run never returns an error: per-task
// failures live in the result sequence.
func (d *Dispatcher) Run(ctx context.Context, tasks []model.TranscriptionTask, language string) []model.TranscriptionResult {
	if d.metrics != nil {
		d.metrics.BatchesStarted.Inc()
		defer d.metrics.BatchesCompleted.Inc()
	}

	gate := newCallGate(d.opts.CallInterval)
	results := make([]model.TranscriptionResult, len(tasks))

	var group errgroup.Group
	group.SetLimit(d.opts.Concurrency)

	for i, task := range tasks {
		if ctx.Err() != nil {
			results[i] = d.cancelledResult(task)
			continue
		}
		i, task := i, task
		group.Go(func() error {
			if ctx.Err() != nil {
				results[i] = d.cancelledResult(task)
				return nil
			}
			results[i] = d.runTask(ctx, gate, task, language)
			return nil
		})
	}

	group.Wait()
	return results
}

// runTask executes one task with retry. Permanent failures stop immediately;
// transient ones are retried up to the bound with a linear backoff.
func (d *Dispatcher) runTask(ctx context.Context, gate *callGate, task model.TranscriptionTask, language string) model.TranscriptionResult {
	start := time.Now()
	if d.metrics != nil {
		d.metrics.TasksInFlight.Inc()
		defer d.metrics.TasksInFlight.Dec()
	}

	// Format gate comes first: an unsupported format must fail without any
	// acquisition or provider traffic.
	if !model.FormatSupported(task.Format) {
		taskErr := model.NewTaskError(model.ErrUnsupportedFormat, nil,
			"unsupported audio format: .%s", task.Format)
		return d.finishFailure(task, taskErr, start, nil)
	}

	taskCtx, cancel := context.WithTimeout(ctx, d.opts.TaskTimeout)
	defer cancel()

	var lastErr *model.TaskError
	var downloadMs *int64

	for attempt := 0; attempt <= d.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			if d.metrics != nil {
				d.metrics.ProviderRetries.Inc()
			}
			backoff := d.opts.RetryBackoff * time.Duration(attempt)
			log.Printf("[Dispatcher] Retrying %s (attempt %d/%d) after %v: %v",
				task.Identifier, attempt+1, d.opts.MaxRetries+1, backoff, lastErr)
			if err := sleepCtx(taskCtx, backoff); err != nil {
				break
			}
		}

		text, payload, taskErr := d.attempt(taskCtx, gate, task, language)
		if payload != nil {
			task.SizeBytes = payload.SizeBytes
			if payload.DownloadTimeMs != nil {
				downloadMs = payload.DownloadTimeMs
			}
		}
		if taskErr == nil {
			return d.finishSuccess(task, text, start, downloadMs)
		}

		// Batch cancellation is not a task fault; stop retrying and mark
		// the task accordingly.
		if ctx.Err() != nil {
			lastErr = model.NewTaskError(model.ErrCancelled, ctx.Err(), "batch cancelled")
			break
		}
		if taskCtx.Err() != nil {
			lastErr = model.NewTaskError(model.ErrAcquisitionTimeout, taskCtx.Err(),
				"task timed out after %s", d.opts.TaskTimeout)
			break
		}

		lastErr = taskErr
		if !model.Retryable(taskErr) {
			break
		}
	}

	return d.finishFailure(task, lastErr, start, downloadMs)
}

// attempt performs one acquire+invoke pass
func (d *Dispatcher) attempt(ctx context.Context, gate *callGate, task model.TranscriptionTask, language string) (string, *acquire.Payload, *model.TaskError) {
	payload, err := d.acquirer.Acquire(ctx, task)
	if err != nil {
		return "", nil, model.AsTaskError(err)
	}
	if d.metrics != nil && payload.DownloadTimeMs != nil {
		d.metrics.DownloadTime.Observe(float64(*payload.DownloadTimeMs) / 1000)
	}

	// The spacing gate is the only shared state between workers; it spaces
	// provider call starts, not downloads.
	if err := gate.Wait(ctx); err != nil {
		return "", payload, model.AsTaskError(err)
	}

	if d.metrics != nil {
		d.metrics.ProviderCalls.Inc()
	}
	result, err := d.provider.Transcribe(ctx, stt.Request{
		Audio:    payload.Data,
		Filename: task.Identifier,
		Format:   task.Format,
		Language: language,
	})
	if err != nil {
		return "", payload, model.AsTaskError(err)
	}

	return result.Text, payload, nil
}

func (d *Dispatcher) finishSuccess(task model.TranscriptionTask, text string, start time.Time, downloadMs *int64) model.TranscriptionResult {
	elapsed := time.Since(start)
	if d.metrics != nil {
		d.metrics.TasksProcessed.WithLabelValues("success").Inc()
		d.metrics.ProcessingTime.Observe(elapsed.Seconds())
	}
	log.Printf("[Dispatcher] ✓ Success: %s (%.2fs)", task.Identifier, elapsed.Seconds())

	result := model.SuccessResult(task, text, elapsed.Milliseconds())
	result.DownloadTimeMs = downloadMs
	return result
}

func (d *Dispatcher) finishFailure(task model.TranscriptionTask, taskErr *model.TaskError, start time.Time, downloadMs *int64) model.TranscriptionResult {
	elapsed := time.Since(start)
	if d.metrics != nil {
		d.metrics.TasksProcessed.WithLabelValues(string(taskErr.Kind)).Inc()
		d.metrics.ProcessingTime.Observe(elapsed.Seconds())
	}
	log.Printf("[Dispatcher] ✗ Failure: %s - %v", task.Identifier, taskErr)

	result := model.FailureResult(task, taskErr, elapsed.Milliseconds())
	result.DownloadTimeMs = downloadMs
	return result
}

func (d *Dispatcher) cancelledResult(task model.TranscriptionTask) model.TranscriptionResult {
	taskErr := model.NewTaskError(model.ErrCancelled, nil, "batch cancelled before task started")
	if d.metrics != nil {
		d.metrics.TasksProcessed.WithLabelValues(string(model.ErrCancelled)).Inc()
	}
	return model.FailureResult(task, taskErr, 0)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
