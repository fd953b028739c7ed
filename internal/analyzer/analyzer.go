package analyzer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bdougie/photoreel/internal/extractor"
	"github.com/bdougie/photoreel/internal/metrics"
	"github.com/bdougie/photoreel/internal/models"
	"github.com/bdougie/photoreel/internal/storage"
)

var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

// ProcessorConfig holds the locations the batch runner works against.
type ProcessorConfig struct {
	ImageFolder string
	BaseURL     string
}

// Processor runs the analyze stage over a folder, one image at a time.
type Processor struct {
	describer   Describer
	store       storage.Storage
	catalog     storage.Storage
	logger      *slog.Logger
	imageFolder string
	baseURL     string
}

// NewProcessor wires a describer and a result store. catalog may be nil.
func NewProcessor(describer Describer, store, catalog storage.Storage, logger *slog.Logger, cfg ProcessorConfig) *Processor {
	return &Processor{
		describer:   describer,
		store:       store,
		catalog:     catalog,
		logger:      logger,
		imageFolder: cfg.ImageFolder,
		baseURL:     cfg.BaseURL,
	}
}

// ListImages returns the image files directly inside dir. Order follows
// the directory listing; callers must not rely on it being alphabetical.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read image folder '%s': %w", dir, err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(entry.Name()))] {
			images = append(images, entry.Name())
		}
	}
	return images, nil
}

// ProcessFolder analyzes every image in the configured folder and saves the
// accumulated results after each one. Per-image failures end up in the
// result's Error field; only an unreadable folder, a failed sidecar write
// or cancellation stop the run.
func (p *Processor) ProcessFolder(ctx context.Context) ([]models.AnalysisResult, error) {
	p.logger.Info("processing images in folder", "folder", p.imageFolder)

	files, err := ListImages(p.imageFolder)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		p.logger.Warn("no images found", "folder", p.imageFolder)
		return nil, nil
	}

	p.logger.Info("found images to analyze", "count", len(files))

	results := make([]models.AnalysisResult, 0, len(files))
	for i, name := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		work := models.WorkItem{FileName: name, Num: i + 1, Total: len(files)}
		result := p.processImage(ctx, work)
		results = append(results, result)

		if err := p.store.AddResult(ctx, result); err != nil {
			return results, fmt.Errorf("save results after %s: %w", name, err)
		}
		if p.catalog != nil {
			if err := p.catalog.AddResult(ctx, result); err != nil {
				metrics.CatalogErrorsTotal.Inc()
				p.logger.Error("catalog write failed", "file", name, "error", err)
			}
		}
	}

	return results, nil
}

func (p *Processor) processImage(ctx context.Context, work models.WorkItem) models.AnalysisResult {
	p.logger.Info("processing image", "file", work.FileName, "num", work.Num, "total", work.Total)

	meta := extractor.ExtractMetadata(filepath.Join(p.imageFolder, work.FileName), p.logger)
	return p.AnalyzeImage(ctx, work.FileName, meta)
}

// AnalyzeImage asks the vision model about one image. It never fails: a
// model or network error is logged and returned in the result's Error field.
func (p *Processor) AnalyzeImage(ctx context.Context, fileName string, meta models.ImageMetadata) models.AnalysisResult {
	prompt := BuildPrompt(meta)
	imageURL := ImageURL(p.baseURL, fileName)
	p.logger.Debug("built prompt", "file", fileName, "prompt", prompt, "image_url", imageURL)

	result := models.AnalysisResult{
		FileName: fileName,
		Metadata: meta,
	}

	start := time.Now()
	content, err := p.describer.Describe(ctx, prompt, imageURL)
	metrics.VisionRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		p.logger.Error("API call failed", "file", fileName, "error", err)
		msg := err.Error()
		result.Error = &msg
		metrics.ImagesProcessedTotal.WithLabelValues("failed").Inc()
		return result
	}

	result.Description = &content
	result.Caption = ExtractCaption(content)
	if result.Caption == nil {
		metrics.CaptionsMissingTotal.Inc()
		p.logger.Warn("no caption marker in reply", "file", fileName)
	}
	metrics.ImagesProcessedTotal.WithLabelValues("described").Inc()

	return result
}
