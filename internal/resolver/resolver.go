// Package resolver normalizes a batch request into an ordered sequence of
// transcription tasks. Folder requests scan one directory level below the
// root; URL requests are capped at MaxBatchURLs entries.
package resolver

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"audioscribe/internal/model"
)

// MaxBatchURLs is the hard cap on remote items per batch
const MaxBatchURLs = 10

// Request describes the input of one batch: either a local folder or an
// explicit URL list, never both.
type Request struct {
	FolderPath string
	URLs       []string
}

// Resolve turns a request into an ordered task sequence. An empty result is
// reported as model.ErrNoInput rather than an empty successful batch.
func Resolve(req Request) ([]model.TranscriptionTask, error) {
	switch {
	case req.FolderPath != "":
		return resolveFolder(req.FolderPath)
	case len(req.URLs) > 0:
		return resolveURLs(req.URLs), nil
	default:
		return nil, model.ErrNoInput
	}
}

// resolveFolder lists audio files in the folder and its immediate
// subdirectories. Symlinked directories are not followed, so cycles cannot
// hang the scan. Files are sorted by name to keep batch order stable.
func resolveFolder(folderPath string) ([]model.TranscriptionTask, error) {
	info, err := os.Stat(folderPath)
	if err != nil {
		return nil, fmt.Errorf("folder not found: %s: %w", folderPath, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", folderPath)
	}

	var files []string
	entries, err := os.ReadDir(folderPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder %s: %w", folderPath, err)
	}

	for _, entry := range entries {
		path := filepath.Join(folderPath, entry.Name())
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}
		if entry.IsDir() {
			subEntries, err := os.ReadDir(path)
			if err != nil {
				log.Printf("[Resolver] Skipping unreadable subdirectory %s: %v", path, err)
				continue
			}
			for _, sub := range subEntries {
				if sub.IsDir() || sub.Type()&os.ModeSymlink != 0 {
					continue
				}
				files = append(files, filepath.Join(path, sub.Name()))
			}
			continue
		}
		files = append(files, path)
	}

	var tasks []model.TranscriptionTask
	for _, path := range files {
		ext := filepath.Ext(path)
		if !model.FormatSupported(ext) {
			continue
		}
		task := model.TranscriptionTask{
			Identifier: filepath.Base(path),
			Source:     model.SourceLocalFile,
			Location:   path,
			Format:     strings.TrimPrefix(strings.ToLower(ext), "."),
		}
		if stat, err := os.Stat(path); err == nil {
			task.SizeBytes = stat.Size()
			mod := stat.ModTime()
			task.ModifiedAt = &mod
		}
		tasks = append(tasks, task)
	}

	// Same-named files can appear in different subdirectories, so ties are
	// broken on the full path to keep batch order deterministic.
	sort.Slice(tasks, func(i, j int) bool {
		if tasks[i].Identifier != tasks[j].Identifier {
			return tasks[i].Identifier < tasks[j].Identifier
		}
		return tasks[i].Location < tasks[j].Location
	})

	if len(tasks) == 0 {
		return nil, model.ErrNoInput
	}

	log.Printf("[Resolver] Found %d audio files in %s", len(tasks), folderPath)
	return tasks, nil
}

// resolveURLs builds remote tasks in the order given, truncating anything
// past the batch cap before any task is created
func resolveURLs(urls []string) []model.TranscriptionTask {
	if len(urls) > MaxBatchURLs {
		log.Printf("[Resolver] URL list exceeds batch cap, keeping first %d of %d", MaxBatchURLs, len(urls))
		urls = urls[:MaxBatchURLs]
	}

	tasks := make([]model.TranscriptionTask, 0, len(urls))
	for _, rawURL := range urls {
		tasks = append(tasks, model.TranscriptionTask{
			Identifier: filenameFromURL(rawURL),
			Source:     model.SourceRemoteURL,
			Location:   rawURL,
			Format:     formatFromURL(rawURL),
		})
	}
	return tasks
}

// filenameFromURL extracts the last path segment as the task identifier.
// Bare names without an extension get a .mp3 default.
func filenameFromURL(rawURL string) string {
	name := "audio_file"
	if u, err := url.Parse(rawURL); err == nil {
		if base := filepath.Base(u.Path); base != "." && base != "/" && base != "" {
			name = base
		}
	}
	if filepath.Ext(name) == "" {
		name += ".mp3"
	}
	return name
}

func formatFromURL(rawURL string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(filenameFromURL(rawURL))), ".")
}
