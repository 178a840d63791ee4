package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	DBPath     string `env:"DB_PATH" envDefault:"/data/snaplens.db"`
	PhotoPath  string `env:"PHOTO_LOCAL_PATH" envDefault:"/data/photos"`

	// CameraDir points the file-backed camera device at a directory of
	// images. Empty means no camera is available to the capture source.
	CameraDir string `env:"CAMERA_FEED_DIR"`
	CameraFPS int    `env:"CAMERA_FPS" envDefault:"10"`

	Provider    string  `env:"PROVIDER" envDefault:"openai"`
	Endpoint    string  `env:"ANALYSIS_ENDPOINT" envDefault:"https://api.openai.com/v1/chat/completions"`
	APIKey      string  `env:"API_KEY"`
	Model       string  `env:"MODEL" envDefault:"gpt-4o"`
	MaxTokens   int     `env:"MAX_TOKENS" envDefault:"300"`
	Temperature float64 `env:"TEMPERATURE" envDefault:"0.7"`

	// AnalyzeTimeout bounds a single analysis request at the HTTP layer.
	// Zero disables the bound; the analysis client itself imposes none.
	AnalyzeTimeout time.Duration `env:"ANALYZE_TIMEOUT" envDefault:"0"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogFile   string `env:"LOG_FILE"`
}

// Load reads .env if present and parses environment variables into Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}
