// Package config provides configuration loading from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Static errors for configuration validation.
var (
	// ErrInvalidFetchStrategy is returned when FETCH_STRATEGY is not a known value.
	ErrInvalidFetchStrategy = errors.New("config: FETCH_STRATEGY must be \"streamed\" or \"buffered\"")
	// ErrInvalidDimensions is returned when default dimensions are not positive.
	ErrInvalidDimensions = errors.New("config: DEFAULT_WIDTH and DEFAULT_HEIGHT must be positive")
	// ErrInvalidDownloadLimit is returned when the download byte cap is not positive.
	ErrInvalidDownloadLimit = errors.New("config: MAX_DOWNLOAD_BYTES must be positive")
)

// Config holds all configuration for the application.
// All values resolve once at process start and are immutable afterwards.
type Config struct {
	// Server settings
	Port          int    `env:"PORT, default=8080" json:"port"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL, default=http://localhost:8080" json:"public_base_url"`

	// Storage settings
	OutputDir string `env:"OUTPUT_DIR, default=./videos" json:"output_dir"`
	TempDir   string `env:"TEMP_DIR, default=/tmp/stillcast" json:"temp_dir"`

	// Download settings
	MaxDownloadBytes   int64  `env:"MAX_DOWNLOAD_BYTES, default=10485760" json:"max_download_bytes"`
	DownloadTimeoutSec int    `env:"DOWNLOAD_TIMEOUT_SEC, default=30" json:"download_timeout_sec"`
	MaxRedirects       int    `env:"MAX_REDIRECTS, default=3" json:"max_redirects"`
	FetchStrategy      string `env:"FETCH_STRATEGY, default=streamed" json:"fetch_strategy"` // "streamed" or "buffered"

	// Clip defaults and bounds
	DefaultWidth       int `env:"DEFAULT_WIDTH, default=1080" json:"default_width"`
	DefaultHeight      int `env:"DEFAULT_HEIGHT, default=1920" json:"default_height"`
	DefaultDurationSec int `env:"DEFAULT_DURATION_SEC, default=5" json:"default_duration_sec"`
	MaxDurationSec     int `env:"MAX_DURATION_SEC, default=90" json:"max_duration_sec"`
	DefaultFPS         int `env:"DEFAULT_FPS, default=24" json:"default_fps"`
	MaxFPS             int `env:"MAX_FPS, default=60" json:"max_fps"`
	IntroMaxSec        int `env:"INTRO_MAX_SEC, default=1" json:"intro_max_sec"`

	// Encoder settings
	VideoCodec       string `env:"VIDEO_CODEC, default=libx264" json:"video_codec"`
	CRF              int    `env:"CRF, default=28" json:"crf"`
	Preset           string `env:"PRESET, default=veryfast" json:"preset"`
	MaxBitrate       string `env:"MAX_BITRATE, default=1M" json:"max_bitrate"`
	BufSize          string `env:"BUF_SIZE, default=2M" json:"buf_size"`
	GOPSize          int    `env:"GOP_SIZE, default=48" json:"gop_size"`
	AudioBitrate     string `env:"AUDIO_BITRATE, default=64k" json:"audio_bitrate"`
	EncodeTimeoutSec int    `env:"ENCODE_TIMEOUT_SEC, default=0" json:"encode_timeout_sec"` // 0 disables the watchdog
	FFmpegPath       string `env:"FFMPEG_PATH" json:"ffmpeg_path,omitempty"`

	// Housekeeping
	TempMaxAgeMin int `env:"TEMP_MAX_AGE_MIN, default=60" json:"temp_max_age_min"`

	// Optional S3 settings
	S3Bucket           string `env:"S3_BUCKET" json:"s3_bucket,omitempty"`
	S3Region           string `env:"S3_REGION" json:"s3_region,omitempty"`
	AWSAccessKeyID     string `env:"AWS_ACCESS_KEY_ID" json:"-"`     // Masked in JSON
	AWSSecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY" json:"-"` // Masked in JSON

	// Logging settings
	LogFormat string `env:"LOG_FORMAT, default=text" json:"log_format"` // "json" or "text"
	LogLevel  string `env:"LOG_LEVEL, default=info" json:"log_level"`   // "debug", "info", "warn", "error"
}

// S3Enabled returns true if S3 configuration is provided.
func (c *Config) S3Enabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

// DownloadTimeout returns the download timeout as a duration.
func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.DownloadTimeoutSec) * time.Second
}

// EncodeTimeout returns the encode watchdog timeout; zero means no watchdog.
func (c *Config) EncodeTimeout() time.Duration {
	return time.Duration(c.EncodeTimeoutSec) * time.Second
}

// TempMaxAge returns the maximum age of staged temp files before the
// background sweeper removes them.
func (c *Config) TempMaxAge() time.Duration {
	return time.Duration(c.TempMaxAgeMin) * time.Minute
}

// Load reads configuration from environment variables using go-envconfig.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the loaded configuration is internally consistent.
func (c *Config) Validate() error {
	switch strings.ToLower(c.FetchStrategy) {
	case "streamed", "buffered":
	default:
		return ErrInvalidFetchStrategy
	}
	if c.DefaultWidth <= 0 || c.DefaultHeight <= 0 {
		return ErrInvalidDimensions
	}
	if c.MaxDownloadBytes <= 0 {
		return ErrInvalidDownloadLimit
	}
	return nil
}

// NewLogger creates a structured logger based on the configuration.
// When LogFormat is "json", it outputs JSON logs suitable for production.
// Otherwise, it outputs human-readable text logs.
func (c *Config) NewLogger() *slog.Logger {
	level := parseLogLevel(c.LogLevel)

	var handler slog.Handler
	if strings.ToLower(c.LogFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}

	return slog.New(handler)
}

// String returns a string representation of the config with sensitive values masked.
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Port: %d, OutputDir: %s, TempDir: %s, MaxDownloadBytes: %d, FetchStrategy: %s, Codec: %s, S3Bucket: %s, LogFormat: %s, LogLevel: %s}",
		c.Port,
		c.OutputDir,
		c.TempDir,
		c.MaxDownloadBytes,
		c.FetchStrategy,
		c.VideoCodec,
		c.S3Bucket,
		c.LogFormat,
		c.LogLevel,
	)
}

// parseLogLevel converts a string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
