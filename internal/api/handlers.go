package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"audioscribe/internal/model"
	"audioscribe/internal/report"
	"audioscribe/internal/resolver"
	"audioscribe/internal/storage"
	"audioscribe/internal/utils"
)

// batchRequest is the JSON body of POST /api/transcribe/batch. The binding
// tags enforce the URL cap and the language shape at the transport boundary.
type batchRequest struct {
	AudioURLs      []string `json:"audio_urls" binding:"required,min=1,max=10,dive,url"`
	Language       string   `json:"language" binding:"omitempty,len=2,alpha,lowercase"`
	MaxFileSizeMB  int      `json:"max_file_size_mb" binding:"omitempty,min=1,max=100"`
	TimeoutSeconds int      `json:"timeout_seconds" binding:"omitempty,min=1,max=900"`
}

// folderRequest is the JSON body of POST /api/transcribe/folder
type folderRequest struct {
	Folder         string `json:"folder" binding:"required"`
	Language       string `json:"language" binding:"omitempty,len=2,alpha,lowercase"`
	MaxFileSizeMB  int    `json:"max_file_size_mb" binding:"omitempty,min=1,max=100"`
	TimeoutSeconds int    `json:"timeout_seconds" binding:"omitempty,min=1,max=900"`
	SaveReport     bool   `json:"save_report"`
}

// transcribeBatch handles POST /api/transcribe/batch
func (s *Service) transcribeBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	batchCfg, opts := s.batchOptions(req.MaxFileSizeMB, req.TimeoutSeconds)
	language := s.defaultLanguage(req.Language)

	log.Printf("[API] Batch transcription request: %d URLs, language=%q", len(req.AudioURLs), language)

	batch, batchID, err := s.runBatch(c.Request.Context(),
		resolver.Request{URLs: req.AudioURLs}, language, batchCfg, opts)
	if err != nil {
		s.renderBatchError(c, err)
		return
	}

	s.renderBatch(c, batch, batchID)
}

// transcribeUpload handles POST /api/transcribe: a single multipart audio
// file transcribed as a one-task batch
func (s *Service) transcribeUpload(c *gin.Context) {
	file, err := c.FormFile("audio_file")
	if err != nil {
		// Accept the plain field name too
		if file, err = c.FormFile("file"); err != nil {
			utils.Error(c, http.StatusBadRequest, "audio_file is required: "+err.Error())
			return
		}
	}

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Filename)), ".")
	if !model.FormatSupported(ext) {
		utils.Error(c, http.StatusBadRequest,
			"unsupported audio format. Supported: "+strings.Join(model.FormatList(), ", "))
		return
	}

	batchCfg, opts := s.batchOptions(0, 0)
	if file.Size > batchCfg.MaxFileSizeBytes() {
		utils.Error(c, http.StatusBadRequest,
			fmt.Sprintf("file size exceeds %dMB limit", batchCfg.MaxFileSizeMB))
		return
	}

	tmp, err := os.CreateTemp("", "audioscribe_upload_*."+ext)
	if err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to store upload")
		return
	}
	tmp.Close()
	defer func() {
		if err := os.Remove(tmp.Name()); err != nil {
			log.Printf("[API] Failed to delete uploaded temp file %s: %v", tmp.Name(), err)
		}
	}()
	if err := c.SaveUploadedFile(file, tmp.Name()); err != nil {
		utils.Error(c, http.StatusInternalServerError, "failed to store upload: "+err.Error())
		return
	}

	language := s.defaultLanguage(c.PostForm("language"))
	log.Printf("[API] Upload transcription request: %s (%d bytes), language=%q",
		file.Filename, file.Size, language)

	task := model.TranscriptionTask{
		Identifier: filepath.Base(file.Filename),
		Source:     model.SourceLocalFile,
		Location:   tmp.Name(),
		Format:     ext,
		SizeBytes:  file.Size,
	}

	batchID := s.store.Create()
	batch := s.runTasks(c.Request.Context(), batchID, []model.TranscriptionTask{task}, language, batchCfg, opts)
	s.renderBatch(c, batch, batchID)
}

// transcribeFolder handles POST /api/transcribe/folder for server-local
// audio folders
func (s *Service) transcribeFolder(c *gin.Context) {
	var req folderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.Error(c, http.StatusBadRequest, fmt.Sprintf("invalid request: %v", err))
		return
	}

	batchCfg, opts := s.batchOptions(req.MaxFileSizeMB, req.TimeoutSeconds)
	language := s.defaultLanguage(req.Language)

	log.Printf("[API] Folder transcription request: %s, language=%q", req.Folder, language)

	batch, batchID, err := s.runBatch(c.Request.Context(),
		resolver.Request{FolderPath: req.Folder}, language, batchCfg, opts)
	if err != nil {
		s.renderBatchError(c, err)
		return
	}

	reportPath := ""
	if req.SaveReport {
		path, err := batch.SaveCSV(s.cfg.OutputFolder)
		if err != nil {
			log.Printf("[API] Failed to save report for batch %s: %v", batchID, err)
		} else {
			reportPath = path
			s.store.Complete(batchID, batch.Results, batch.Summary, path)
		}
	}

	if c.DefaultQuery("format", "json") != "json" {
		s.renderBatch(c, batch, batchID)
		return
	}

	utils.Success(c, gin.H{
		"batch_id":    batchID,
		"summary":     batch.Summary,
		"results":     batch.Results,
		"report_path": reportPath,
	})
}

// getBatch handles GET /api/batches/:id
func (s *Service) getBatch(c *gin.Context) {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		utils.Error(c, http.StatusNotFound, "batch not found")
		return
	}

	data := gin.H{
		"id":         rec.ID,
		"status":     rec.Status,
		"created_at": rec.CreatedAt,
	}
	switch rec.Status {
	case storage.StatusCompleted:
		data["summary"] = rec.Summary
		data["results"] = rec.Results
		if rec.ReportPath != "" {
			data["report_path"] = rec.ReportPath
		}
	case storage.StatusFailed:
		data["error"] = rec.Error
	}

	utils.Success(c, data)
}

// health handles GET /health
func (s *Service) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"provider":          s.provider.Name(),
		"supported_formats": supportedFormats(),
		"max_file_size_mb":  s.cfg.Batch.MaxFileSizeMB,
		"uptime_seconds":    s.uptime(),
	})
}

// formats handles GET /api/formats
func (s *Service) formats(c *gin.Context) {
	utils.Success(c, gin.H{
		"formats":          supportedFormats(),
		"max_file_size_mb": s.cfg.Batch.MaxFileSizeMB,
	})
}

// renderBatchError maps batch-level failures onto HTTP statuses. The
// no-input condition is distinct from both success and server faults.
func (s *Service) renderBatchError(c *gin.Context, err error) {
	if errors.Is(err, model.ErrNoInput) {
		utils.ErrorKind(c, http.StatusUnprocessableEntity, "no_input_found", err.Error())
		return
	}
	utils.Error(c, http.StatusBadRequest, err.Error())
}

// renderBatch renders a finished batch in the representation selected by the
// format query parameter (json, csv or text)
func (s *Service) renderBatch(c *gin.Context, batch report.Batch, batchID string) {
	switch c.DefaultQuery("format", "json") {
	case "csv":
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="transcriptions.csv"`)
		c.Status(http.StatusOK)
		if err := batch.WriteCSV(c.Writer); err != nil {
			log.Printf("[API] Failed to stream CSV for batch %s: %v", batchID, err)
		}
	case "text":
		c.String(http.StatusOK, batch.PlainText())
	default:
		utils.Success(c, gin.H{
			"batch_id": batchID,
			"summary":  batch.Summary,
			"results":  batch.Results,
		})
	}
}
