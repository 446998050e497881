package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"audioscribe/internal/acquire"
	"audioscribe/internal/config"
	"audioscribe/internal/dispatch"
	"audioscribe/internal/metrics"
	"audioscribe/internal/model"
	"audioscribe/internal/report"
	"audioscribe/internal/resolver"
	"audioscribe/internal/storage"
	"audioscribe/internal/stt"
)

// Service wires the batch core behind the HTTP handlers
type Service struct {
	cfg      *config.Config
	provider stt.Provider
	store    *storage.Store
	metrics  *metrics.Metrics
	started  time.Time
}

// NewService creates the API service
func NewService(cfg *config.Config, provider stt.Provider, store *storage.Store, m *metrics.Metrics) *Service {
	return &Service{
		cfg:      cfg,
		provider: provider,
		store:    store,
		metrics:  m,
		started:  time.Now(),
	}
}

// RegisterRoutes registers all endpoints on the router
func (s *Service) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.GET("/formats", s.formats)
	api.POST("/transcribe", s.transcribeUpload)
	api.POST("/transcribe/batch", s.transcribeBatch)
	api.POST("/transcribe/folder", s.transcribeFolder)
	api.GET("/batches/:id", s.getBatch)
}

// batchOptions builds per-run dispatcher options, applying request-level
// overrides on top of the configured defaults
func (s *Service) batchOptions(maxSizeMB, timeoutSec int) (config.BatchConfig, dispatch.Options) {
	batchCfg := s.cfg.Batch
	if maxSizeMB > 0 {
		batchCfg.MaxFileSizeMB = maxSizeMB
	}
	if timeoutSec > 0 {
		batchCfg.TaskTimeoutSec = timeoutSec
	}

	opts := dispatch.Options{
		Concurrency:  batchCfg.Concurrency,
		CallInterval: batchCfg.APIDelay(),
		TaskTimeout:  batchCfg.TaskTimeout(),
		MaxRetries:   batchCfg.MaxRetries,
		RetryBackoff: batchCfg.RetryBackoff(),
	}
	return batchCfg, opts
}

// runBatch resolves the request and executes it, recording the run in the
// batch store. The returned record ID is valid even on failure.
func (s *Service) runBatch(ctx context.Context, req resolver.Request, language string, batchCfg config.BatchConfig, opts dispatch.Options) (report.Batch, string, error) {
	batchID := s.store.Create()

	tasks, err := resolver.Resolve(req)
	if err != nil {
		s.store.Fail(batchID, err.Error())
		return report.Batch{}, batchID, err
	}

	return s.runTasks(ctx, batchID, tasks, language, batchCfg, opts), batchID, nil
}

// runTasks dispatches an already-resolved task sequence and completes the
// batch record
func (s *Service) runTasks(ctx context.Context, batchID string, tasks []model.TranscriptionTask, language string, batchCfg config.BatchConfig, opts dispatch.Options) report.Batch {
	acquirer := acquire.New(acquire.Options{
		MaxBytes:        batchCfg.MaxFileSizeBytes(),
		DownloadTimeout: batchCfg.DownloadTimeout(),
	})
	dispatcher := dispatch.New(acquirer, s.provider, opts).WithMetrics(s.metrics)

	results := dispatcher.Run(ctx, tasks, language)
	batch := report.NewBatch(results, time.Now())

	s.store.Complete(batchID, batch.Results, batch.Summary, "")
	return batch
}

func (s *Service) defaultLanguage(requested string) string {
	if requested != "" {
		return requested
	}
	return s.cfg.Provider.DefaultLanguage
}

func (s *Service) uptime() float64 {
	return time.Since(s.started).Seconds()
}

func supportedFormats() []string {
	return model.FormatList()
}
