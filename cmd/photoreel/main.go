package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bdougie/photoreel/internal/analyzer"
	"github.com/bdougie/photoreel/internal/config"
	"github.com/bdougie/photoreel/internal/embeddings"
	"github.com/bdougie/photoreel/internal/logging"
	"github.com/bdougie/photoreel/internal/metrics"
	"github.com/bdougie/photoreel/internal/reel"
	"github.com/bdougie/photoreel/internal/storage"
)

const usage = `Usage: photoreel <command> [flags]

Commands:
  analyze   caption every image in IMAGE_FOLDER and write the sidecar
  reel      build a vertical slideshow video from the sidecar
  search    query the Postgres catalog by description

Run 'photoreel <command> -h' for command flags.
`

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	if len(args) < 1 {
		fmt.Fprint(os.Stderr, usage)
		return 2
	}

	config.LoadDotEnv()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch args[0] {
	case "analyze":
		err = runAnalyze(ctx, args[1:])
	case "reel":
		err = runReel(ctx, args[1:])
	case "search":
		err = runSearch(ctx, args[1:])
	case "-h", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", args[0], usage)
		return 2
	}

	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "photoreel %s: %v\n", args[0], err)
		return 1
	}
	return 0
}

// overrideEnv lets a non-empty flag win over the environment before the
// configuration is parsed.
func overrideEnv(key, value string) {
	if value != "" {
		os.Setenv(key, value)
	}
}

func writeMetrics(path string, logger *slog.Logger) {
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path); err != nil {
		logger.Error("failed to write metrics", "path", path, "error", err)
	}
}

func runAnalyze(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	folder := fs.String("folder", "", "image folder (overrides IMAGE_FOLDER)")
	out := fs.String("out", "", "sidecar path (overrides SIDECAR_PATH)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	overrideEnv("IMAGE_FOLDER", *folder)
	overrideEnv("SIDECAR_PATH", *out)

	cfg, err := config.LoadAnalyze()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)
	defer writeMetrics(cfg.MetricsFile, logger)

	visionAgent, err := analyzer.NewAgent(analyzer.AgentConfig{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.OpenAI.BaseURL,
		Model:     cfg.VisionModel,
		MaxTokens: cfg.MaxTokens,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize vision agent: %w", err)
	}

	store := storage.NewSidecarStorage(cfg.SidecarPath, cfg.ImageBaseURL)

	var catalog storage.Storage
	if cfg.DatabaseURL != "" {
		pg, err := openCatalog(ctx, cfg.DatabaseURL, cfg.OpenAI, cfg.ImageBaseURL, logger)
		if err != nil {
			return err
		}
		defer pg.Close()
		catalog = pg
		logger.Info("mirroring results to postgres catalog")
	}

	processor := analyzer.NewProcessor(visionAgent, store, catalog, logger, analyzer.ProcessorConfig{
		ImageFolder: cfg.ImageFolder,
		BaseURL:     cfg.ImageBaseURL,
	})

	results, err := processor.ProcessFolder(ctx)
	if err != nil {
		return err
	}
	if err := store.Flush(); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}

	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
		}
	}
	logger.Info("analysis complete",
		"images", len(results),
		"failed", failed,
		"sidecar", store.Path(),
	)
	return nil
}

func runReel(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("reel", flag.ContinueOnError)
	in := fs.String("in", "", "sidecar to read (overrides SIDECAR_PATH)")
	out := fs.String("out", "", "video to write (overrides REEL_OUTPUT)")
	audio := fs.String("audio", "", "background audio file (overrides BACKGROUND_AUDIO)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	overrideEnv("SIDECAR_PATH", *in)
	overrideEnv("REEL_OUTPUT", *out)
	overrideEnv("BACKGROUND_AUDIO", *audio)

	cfg, err := config.LoadReel()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)
	defer writeMetrics(cfg.MetricsFile, logger)

	assembler, err := reel.NewAssembler(reel.Options{
		FFmpegBin:       cfg.FFmpegBin,
		FFprobeBin:      cfg.FFprobeBin,
		BackgroundAudio: cfg.BackgroundAudio,
		CaptionFont:     cfg.CaptionFont,
	}, reel.NewHTTPFetcher(cfg.HTTPTimeout), reel.ExecRunner{}, logger)
	if err != nil {
		return err
	}

	summary, err := assembler.Assemble(ctx, cfg.SidecarPath, cfg.Output)
	if err != nil {
		return err
	}
	if summary.Clips > 0 {
		fmt.Printf("Reel created successfully: %s\n", summary.Output)
	}
	return nil
}

func runSearch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	query := fs.String("q", "", "text to search for")
	limit := fs.Int("limit", 5, "maximum number of results")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *query == "" {
		fs.Usage()
		return errors.New("missing -q")
	}

	cfg, err := config.LoadSearch()
	if err != nil {
		return err
	}

	logger := logging.New(os.Stderr, cfg.LogLevel)
	defer writeMetrics(cfg.MetricsFile, logger)

	catalog, err := openCatalog(ctx, cfg.DatabaseURL, cfg.OpenAI, "", logger)
	if err != nil {
		return err
	}
	defer catalog.Close()

	results, err := catalog.SearchSimilar(ctx, *query, *limit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No matching photos.")
		return nil
	}

	for _, r := range results {
		fmt.Printf("%.3f  %s  %s\n", r.Similarity, r.FileName, r.ImageURL)
		if r.Caption != nil {
			fmt.Printf("       %s\n", *r.Caption)
		}
	}
	return nil
}

func openCatalog(ctx context.Context, databaseURL string, ai config.OpenAI, baseURL string, logger *slog.Logger) (*storage.PostgresStorage, error) {
	embedder, err := embeddings.NewService(embeddings.Config{
		APIKey:     ai.APIKey,
		BaseURL:    ai.BaseURL,
		Model:      ai.EmbeddingModel,
		Dimensions: ai.EmbeddingDimensions,
	})
	if err != nil {
		return nil, err
	}

	pool, err := storage.Connect(ctx, databaseURL)
	if err != nil {
		return nil, err
	}
	if err := storage.InitSchema(ctx, pool, embedder.Dimensions()); err != nil {
		pool.Close()
		return nil, err
	}

	return storage.NewPostgresStorage(pool, embedder, baseURL, logger), nil
}
