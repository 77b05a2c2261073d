// Package encode builds and runs encoder invocations: a fixed fit-and-pad
// filter pipeline plus a configuration-time codec profile, producing
// standalone playable MP4 clips from still images, optionally with a
// stream-copied intro segment in front.
package encode

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Params are the per-request media parameters, already clamped by the caller.
type Params struct {
	DurationSec int
	FPS         int
	Width       int
	Height      int
}

// Orchestrator drives the Encoder to produce one finished clip per request.
// All outputs and intermediates are written to the staging directory; the
// caller installs the finished clip into the public output directory.
type Orchestrator struct {
	enc     Encoder
	tempDir string
	logger  *slog.Logger
	timeout time.Duration
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets the orchestrator logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		o.logger = logger
	}
}

// WithWatchdog bounds every render with a timeout. Zero disables the
// watchdog and leaves termination to the encoder's own duration cap.
func WithWatchdog(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) {
		o.timeout = d
	}
}

// NewOrchestrator creates an Orchestrator writing intermediates to tempDir.
func NewOrchestrator(enc Encoder, tempDir string, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		enc:     enc,
		tempDir: tempDir,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RenderStill encodes the staged input into a finished MP4 in the staging
// directory and returns its path. The caller owns installing it into the
// output directory and removing it afterwards.
func (o *Orchestrator) RenderStill(ctx context.Context, inputPath string, p Params, prof Profile) (string, error) {
	ctx, cancel := o.watchCtx(ctx)
	defer cancel()

	out, err := o.tempClip()
	if err != nil {
		return "", err
	}

	spec := ClipSpec{
		InputPath:   inputPath,
		DurationSec: p.DurationSec,
		FPS:         p.FPS,
		Width:       p.Width,
		Height:      p.Height,
		Profile:     prof,
	}
	if err := o.enc.EncodeStill(ctx, spec, out); err != nil {
		_ = os.Remove(out)
		return "", err
	}

	o.logger.Debug("encoded clip",
		slog.String("input", inputPath),
		slog.Int("duration_sec", p.DurationSec),
		slog.Int("fps", p.FPS),
		slog.Int("width", p.Width),
		slog.Int("height", p.Height),
	)
	return out, nil
}

// RenderWithIntro encodes an intro clip and a main clip with identical
// codec parameters, then joins them by stream copy into one container.
// Intermediate segments never leave the staging directory and are removed
// whether the operation succeeds or fails. A zero intro duration or empty
// intro path degrades to RenderStill.
func (o *Orchestrator) RenderWithIntro(ctx context.Context, introPath string, introSec int, mainPath string, p Params, prof Profile) (string, error) {
	if introPath == "" || introSec <= 0 {
		return o.RenderStill(ctx, mainPath, p, prof)
	}

	ctx, cancel := o.watchCtx(ctx)
	defer cancel()

	introClip, err := o.tempClip()
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(introClip) }()

	mainClip, err := o.tempClip()
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(mainClip) }()

	introSpec := ClipSpec{
		InputPath:   introPath,
		DurationSec: introSec,
		FPS:         p.FPS,
		Width:       p.Width,
		Height:      p.Height,
		Profile:     prof,
	}
	if err := o.enc.EncodeStill(ctx, introSpec, introClip); err != nil {
		return "", fmt.Errorf("encode intro segment: %w", err)
	}

	mainSpec := introSpec
	mainSpec.InputPath = mainPath
	mainSpec.DurationSec = p.DurationSec
	if err := o.enc.EncodeStill(ctx, mainSpec, mainClip); err != nil {
		return "", fmt.Errorf("encode main segment: %w", err)
	}

	out, err := o.tempClip()
	if err != nil {
		return "", err
	}
	if err := o.enc.Concat(ctx, []string{introClip, mainClip}, out); err != nil {
		_ = os.Remove(out)
		return "", fmt.Errorf("concatenate segments: %w", err)
	}

	o.logger.Debug("encoded clip with intro",
		slog.String("intro", introPath),
		slog.Int("intro_sec", introSec),
		slog.String("main", mainPath),
		slog.Int("duration_sec", p.DurationSec),
	)
	return out, nil
}

// tempClip reserves a uniquely named MP4 path in the staging directory.
func (o *Orchestrator) tempClip() (string, error) {
	f, err := os.CreateTemp(o.tempDir, "clip_*.mp4")
	if err != nil {
		return "", fmt.Errorf("create temp clip: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("close temp clip: %w", err)
	}
	return f.Name(), nil
}

// watchCtx applies the encode watchdog when configured.
func (o *Orchestrator) watchCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.timeout > 0 {
		return context.WithTimeout(ctx, o.timeout)
	}
	return context.WithCancel(ctx)
}
