// Package bootstrap provides dependency initialization for the service.
package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/stillcast/stillcast-api/internal/config"
	"github.com/stillcast/stillcast-api/internal/encode"
	"github.com/stillcast/stillcast-api/internal/fetch"
	"github.com/stillcast/stillcast-api/internal/server"
	"github.com/stillcast/stillcast-api/internal/storage"
	"github.com/stillcast/stillcast-api/internal/video"
	"github.com/stillcast/stillcast-api/internal/workspace"
)

// sweepSchedule is how often the stale-temp sweeper runs.
const sweepSchedule = "@every 15m"

// Dependencies holds all initialized dependencies for the HTTP server.
type Dependencies struct {
	VideoService *video.Service
	Bounds       server.ParamBounds
	Baseline     encode.Profile
	Compressed   encode.Profile
	OutputDir    string
	Sweeper      *cron.Cron
}

// NewDependencies creates and initializes all dependencies for the application.
func NewDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	store, err := initStorage(cfg, logger)
	if err != nil {
		return nil, err
	}

	strategy, err := fetch.ParseStrategy(cfg.FetchStrategy)
	if err != nil {
		return nil, err
	}

	fetcher := fetch.NewHTTPFetcher(store,
		fetch.WithMaxBytes(cfg.MaxDownloadBytes),
		fetch.WithTimeout(cfg.DownloadTimeout()),
		fetch.WithMaxRedirects(cfg.MaxRedirects),
		fetch.WithStrategy(strategy),
	)

	ws, err := workspace.NewManager(cfg.OutputDir, cfg.TempDir, logger)
	if err != nil {
		return nil, fmt.Errorf("create workspace manager: %w", err)
	}

	sweeper, err := ws.StartTempSweeper(sweepSchedule, cfg.TempMaxAge())
	if err != nil {
		return nil, err
	}

	encoder := encode.NewFFmpegEncoder(cfg.FFmpegPath)
	orch := encode.NewOrchestrator(encoder, cfg.TempDir,
		encode.WithLogger(logger),
		encode.WithWatchdog(cfg.EncodeTimeout()),
	)

	svc := video.NewService(fetcher, ws, orch, store, cfg.PublicBaseURL,
		video.WithLogger(logger),
	)

	return &Dependencies{
		VideoService: svc,
		Bounds: server.ParamBounds{
			DefaultDurationSec: cfg.DefaultDurationSec,
			MaxDurationSec:     cfg.MaxDurationSec,
			DefaultFPS:         cfg.DefaultFPS,
			MaxFPS:             cfg.MaxFPS,
			DefaultWidth:       cfg.DefaultWidth,
			DefaultHeight:      cfg.DefaultHeight,
			IntroMaxSec:        cfg.IntroMaxSec,
		},
		Baseline: encode.Baseline(),
		Compressed: encode.Compressed(encode.CompressedOptions{
			Codec:        cfg.VideoCodec,
			CRF:          cfg.CRF,
			Preset:       cfg.Preset,
			MaxBitrate:   cfg.MaxBitrate,
			BufSize:      cfg.BufSize,
			GOPSize:      cfg.GOPSize,
			AudioBitrate: cfg.AudioBitrate,
		}),
		OutputDir: ws.OutputDir(),
		Sweeper:   sweeper,
	}, nil
}

// initStorage creates the appropriate storage backend based on configuration.
func initStorage(cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	if cfg.S3Enabled() {
		s3Cfg := storage.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		}
		s3Store, err := storage.NewS3Storage(cfg.TempDir, s3Cfg)
		if err != nil {
			return nil, fmt.Errorf("create S3 storage: %w", err)
		}
		logger.Info("S3 publishing configured",
			slog.String("bucket", cfg.S3Bucket),
			slog.String("region", cfg.S3Region),
		)
		return s3Store, nil
	}

	localStore, err := storage.NewLocalStorage(cfg.TempDir)
	if err != nil {
		return nil, fmt.Errorf("create local storage: %w", err)
	}
	logger.Info("local storage configured",
		slog.String("temp_dir", cfg.TempDir),
	)
	return localStore, nil
}
