package reel

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/bdougie/photoreel/internal/metrics"
	"github.com/bdougie/photoreel/internal/models"
	"github.com/bdougie/photoreel/internal/storage"
)

// Options configures the tools and inputs the assembler uses.
type Options struct {
	FFmpegBin       string
	FFprobeBin      string
	BackgroundAudio string // optional; missing or unreadable means silent
	CaptionFont     string // empty for the embedded font
	WorkDir         string // parent for scratch files; empty for the system default
}

// Summary reports what went into an encoded reel.
type Summary struct {
	Output   string
	Clips    int
	Skipped  int
	Duration float64
	Audio    bool
}

// Assembler turns a sidecar into a vertical slideshow video.
type Assembler struct {
	fetcher  ImageFetcher
	runner   Runner
	captions *CaptionRenderer
	opts     Options
	logger   *slog.Logger
}

// NewAssembler creates an assembler. The caption font is loaded up front so
// a bad font path fails before any image is downloaded.
func NewAssembler(opts Options, fetcher ImageFetcher, runner Runner, logger *slog.Logger) (*Assembler, error) {
	captions, err := NewCaptionRenderer(opts.CaptionFont)
	if err != nil {
		return nil, err
	}
	if opts.FFmpegBin == "" {
		opts.FFmpegBin = "ffmpeg"
	}
	if opts.FFprobeBin == "" {
		opts.FFprobeBin = "ffprobe"
	}

	return &Assembler{
		fetcher:  fetcher,
		runner:   runner,
		captions: captions,
		opts:     opts,
		logger:   logger,
	}, nil
}

// SortByDateTime returns a copy of images ordered by capture time. Images
// without a timestamp sort first; ties keep their sidecar order.
func SortByDateTime(images []models.ImageRecord) []models.ImageRecord {
	sorted := slices.Clone(images)
	slices.SortStableFunc(sorted, func(a, b models.ImageRecord) int {
		return cmp.Compare(dateKey(a), dateKey(b))
	})
	return sorted
}

func dateKey(r models.ImageRecord) string {
	if r.Metadata.DateTime == nil {
		return ""
	}
	return *r.Metadata.DateTime
}

// Assemble reads the sidecar at sidecarPath and encodes the reel to
// outputPath. Images that cannot be downloaded or decoded are skipped. With
// nothing left to show, no video is written and the summary has zero clips.
func (a *Assembler) Assemble(ctx context.Context, sidecarPath, outputPath string) (*Summary, error) {
	rs, err := storage.LoadResultSet(sidecarPath)
	if err != nil {
		return nil, err
	}

	images := SortByDateTime(rs.Images)
	a.logger.Info("assembling reel", "images", len(images), "output", outputPath)

	workDir, err := os.MkdirTemp(a.opts.WorkDir, "photoreel-*")
	if err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}
	defer os.RemoveAll(workDir)

	summary := &Summary{Output: outputPath}
	var clips []Clip
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		clip, err := a.prepareClip(ctx, workDir, i, img)
		if err != nil {
			a.logger.Error("error processing image", "file", img.FileName, "error", err)
			metrics.ClipsTotal.WithLabelValues("skipped").Inc()
			summary.Skipped++
			continue
		}
		metrics.ClipsTotal.WithLabelValues("created").Inc()
		clips = append(clips, clip)
	}

	if len(clips) == 0 {
		a.logger.Warn("no clips were created")
		return summary, nil
	}

	total := TotalDuration(len(clips))
	job := EncodeJob{Clips: clips, Output: outputPath}
	job.Audio = a.backgroundAudio(ctx, total)

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create output directory: %w", err)
		}
	}

	args := BuildArgs(job)
	a.logger.Debug("running ffmpeg", "args", args)

	start := time.Now()
	if _, err := a.runner.Run(ctx, a.opts.FFmpegBin, args...); err != nil {
		return nil, fmt.Errorf("encode reel: %w", err)
	}
	metrics.ReelEncodeDuration.Observe(time.Since(start).Seconds())

	summary.Clips = len(clips)
	summary.Duration = total
	summary.Audio = job.Audio != ""

	a.logger.Info("reel created successfully",
		"output", outputPath,
		"clips", summary.Clips,
		"skipped", summary.Skipped,
		"duration", summary.Duration,
		"audio", summary.Audio,
	)
	return summary, nil
}

func (a *Assembler) prepareClip(ctx context.Context, workDir string, i int, img models.ImageRecord) (Clip, error) {
	src, err := a.fetcher.Fetch(ctx, img.ImageURL)
	if err != nil {
		return Clip{}, err
	}

	slide, err := RenderSlide(src)
	if err != nil {
		return Clip{}, err
	}

	clip := Clip{
		FileName: img.FileName,
		Slide:    filepath.Join(workDir, fmt.Sprintf("slide_%04d.png", i)),
	}
	if err := writePNG(clip.Slide, slide); err != nil {
		return Clip{}, err
	}

	if img.Caption != nil && *img.Caption != "" {
		clip.Overlay = filepath.Join(workDir, fmt.Sprintf("caption_%04d.png", i))
		if err := writePNG(clip.Overlay, a.captions.Render(*img.Caption)); err != nil {
			return Clip{}, err
		}
	}

	return clip, nil
}

// backgroundAudio returns the audio path to mux, or "" when the reel should
// stay silent.
func (a *Assembler) backgroundAudio(ctx context.Context, total float64) string {
	path := a.opts.BackgroundAudio
	if path == "" {
		return ""
	}

	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			a.logger.Warn("background music not found, reel will be silent", "path", path)
		} else {
			a.logger.Warn("background music error, reel will be silent", "path", path, "error", err)
		}
		return ""
	}

	duration, err := ProbeDuration(ctx, a.runner, a.opts.FFprobeBin, path)
	if err != nil || duration <= 0 {
		a.logger.Warn("background music error, reel will be silent", "path", path, "error", err)
		return ""
	}

	if duration < total {
		a.logger.Info("background music is shorter than the reel and will loop",
			"audio_duration", duration, "reel_duration", total)
	}
	return path
}
