package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Common holds settings shared by every subcommand.
type Common struct {
	LogLevel    string `env:"LOG_LEVEL"    envDefault:"info"`
	MetricsFile string `env:"METRICS_FILE"`
	SidecarPath string `env:"SIDECAR_PATH" envDefault:"image_captions.json"`
}

// OpenAI holds credentials and model names for the hosted model API.
type OpenAI struct {
	APIKey              string `env:"OPENAI_API_KEY,required"`
	BaseURL             string `env:"OPENAI_BASE_URL"`
	EmbeddingModel      string `env:"EMBEDDING_MODEL"      envDefault:"text-embedding-3-small"`
	EmbeddingDimensions int    `env:"EMBEDDING_DIMENSIONS" envDefault:"1536"`
}

// Analyze configures the captioning stage.
type Analyze struct {
	Common
	OpenAI

	ImageBaseURL string `env:"IMAGE_BASE_URL,required"`
	ImageFolder  string `env:"IMAGE_FOLDER,required"`
	VisionModel  string `env:"VISION_MODEL"      envDefault:"gpt-4o"`
	MaxTokens    int64  `env:"VISION_MAX_TOKENS" envDefault:"400"`

	// DatabaseURL enables the Postgres catalog when set.
	DatabaseURL string `env:"DATABASE_URL"`
}

// Reel configures the video assembly stage.
type Reel struct {
	Common

	Output          string        `env:"REEL_OUTPUT"      envDefault:"output_reel.mp4"`
	BackgroundAudio string        `env:"BACKGROUND_AUDIO" envDefault:"background_music.mp3"`
	CaptionFont     string        `env:"CAPTION_FONT"`
	FFmpegBin       string        `env:"FFMPEG_BIN"       envDefault:"ffmpeg"`
	FFprobeBin      string        `env:"FFPROBE_BIN"      envDefault:"ffprobe"`
	HTTPTimeout     time.Duration `env:"HTTP_TIMEOUT"     envDefault:"0s"`
}

// Search configures catalog queries.
type Search struct {
	Common
	OpenAI

	DatabaseURL string `env:"DATABASE_URL,required"`
}

// LoadDotEnv loads a .env file from the working directory if there is one.
// A missing file is not an error; variables already set win.
func LoadDotEnv() {
	_ = godotenv.Load()
}

// LoadAnalyze reads the analyze stage configuration from the environment.
func LoadAnalyze() (*Analyze, error) {
	return load[Analyze]("analyze")
}

// LoadReel reads the reel stage configuration from the environment.
func LoadReel() (*Reel, error) {
	return load[Reel]("reel")
}

// LoadSearch reads the catalog search configuration from the environment.
func LoadSearch() (*Search, error) {
	return load[Search]("search")
}

func load[T any](stage string) (*T, error) {
	cfg, err := env.ParseAs[T]()
	if err != nil {
		return nil, fmt.Errorf("load %s config: %w", stage, err)
	}
	return &cfg, nil
}
