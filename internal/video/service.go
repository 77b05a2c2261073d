// Package video provides the use case that turns one encode request into
// one served artifact: stage the source, purge the output directory, encode,
// install, optionally mirror to remote storage.
package video

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/stillcast/stillcast-api/internal/artifact"
	"github.com/stillcast/stillcast-api/internal/encode"
	"github.com/stillcast/stillcast-api/internal/fetch"
	"github.com/stillcast/stillcast-api/internal/storage"
	"github.com/stillcast/stillcast-api/internal/workspace"
)

// ErrNoSource is returned when a request carries neither a remote URL nor an
// upload.
var ErrNoSource = errors.New("video: a source URL or an uploaded file is required")

// PublicPrefix is the URL path segment under which artifacts are served.
const PublicPrefix = "videos"

// Source describes where the input image comes from: exactly one of a
// remote URL or an already-received upload.
type Source struct {
	// URL is the remote image location.
	URL string
	// UploadName is the declared filename of an upload.
	UploadName string
	// Upload is the upload content; non-nil selects the upload path.
	Upload io.Reader
}

// Request carries everything one encode needs. Params are already clamped
// by the HTTP layer.
type Request struct {
	Source   Source
	Params   encode.Params
	Profile  encode.Profile
	Intro    Source // optional; used only when IntroSec > 0
	IntroSec int
}

// Result is the public outcome of a successful encode.
type Result struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	DurationSec int    `json:"duration_sec"`
	FPS         int    `json:"fps"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	URL         string `json:"url"`
	RelPath     string `json:"rel_path"`
	S3URL       string `json:"s3_url,omitempty"`
}

// Service sequences fetcher, workspace and orchestrator for one request.
type Service struct {
	fetcher       fetch.Fetcher
	ws            *workspace.Manager
	orch          *encode.Orchestrator
	store         storage.Storage
	logger        *slog.Logger
	publicBaseURL string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a Service. store may be nil when no remote mirroring
// is wanted.
func NewService(fetcher fetch.Fetcher, ws *workspace.Manager, orch *encode.Orchestrator, store storage.Storage, publicBaseURL string, opts ...ServiceOption) *Service {
	s := &Service{
		fetcher:       fetcher,
		ws:            ws,
		orch:          orch,
		store:         store,
		logger:        slog.Default(),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create runs the full pipeline: stage → purge → encode → install → mirror.
// Every staged input and intermediate is released on success and on failure.
func (s *Service) Create(ctx context.Context, req Request) (*Result, error) {
	staged, err := s.stage(ctx, req.Source)
	if err != nil {
		return nil, err
	}
	defer s.ws.ReleaseStaged(staged.Path)

	var introPath string
	if req.IntroSec > 0 && req.Intro.present() {
		intro, err := s.stage(ctx, req.Intro)
		if err != nil {
			return nil, fmt.Errorf("intro: %w", err)
		}
		defer s.ws.ReleaseStaged(intro.Path)
		introPath = intro.Path
	}

	clip, err := s.orch.RenderWithIntro(ctx, introPath, req.IntroSec, staged.Path, req.Params, req.Profile)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	installed := false
	defer func() {
		if !installed {
			_ = os.Remove(clip)
		}
	}()

	a := artifact.New(s.ws.OutputDir(), PublicPrefix)
	if err := s.ws.InstallArtifact(clip, a); err != nil {
		return nil, err
	}
	installed = true

	res := &Result{
		ID:          a.ID,
		Filename:    a.Filename,
		DurationSec: req.Params.DurationSec,
		FPS:         req.Params.FPS,
		Width:       req.Params.Width,
		Height:      req.Params.Height,
		URL:         s.publicBaseURL + "/" + a.RelPath,
		RelPath:     a.RelPath,
	}

	if url := s.mirror(ctx, a); url != "" {
		res.S3URL = url
	}

	s.logger.Info("artifact created",
		slog.String("id", a.ID),
		slog.String("filename", a.Filename),
		slog.Int("duration_sec", req.Params.DurationSec),
		slog.Int("fps", req.Params.FPS),
		slog.Int("width", req.Params.Width),
		slog.Int("height", req.Params.Height),
	)
	return res, nil
}

// stage acquires one source into local staging.
func (s *Service) stage(ctx context.Context, src Source) (*fetch.StagedInput, error) {
	switch {
	case src.Upload != nil:
		return s.fetcher.StageUpload(ctx, src.UploadName, src.Upload)
	case src.URL != "":
		return s.fetcher.Fetch(ctx, src.URL)
	default:
		return nil, ErrNoSource
	}
}

// mirror pushes the finished artifact to remote storage when configured.
// Mirroring is best effort: the artifact is already served locally, so a
// failed upload is logged, not surfaced.
func (s *Service) mirror(ctx context.Context, a artifact.Artifact) string {
	if s.store == nil {
		return ""
	}

	f, err := os.Open(a.Path) // #nosec G304 - path is generated internally
	if err != nil {
		s.logger.Warn("mirror: open artifact failed",
			slog.String("path", a.Path),
			slog.String("error", err.Error()),
		)
		return ""
	}
	defer func() { _ = f.Close() }()

	url, err := s.store.Publish(ctx, a.Filename, f)
	if err != nil {
		if !errors.Is(err, storage.ErrPublishNotConfigured) {
			s.logger.Warn("mirror: publish failed",
				slog.String("filename", a.Filename),
				slog.String("error", err.Error()),
			)
		}
		return ""
	}
	return url
}

func (src Source) present() bool {
	return src.URL != "" || src.Upload != nil
}
