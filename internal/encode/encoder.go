package encode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Static errors for encode operations.
var (
	// ErrInvalidDimensions is returned when the target dimensions are not positive.
	ErrInvalidDimensions = errors.New("encode: width and height must be positive")
	// ErrInvalidDuration is returned when the clip duration is not positive.
	ErrInvalidDuration = errors.New("encode: duration must be positive")
	// ErrInvalidFrameRate is returned when the frame rate is not positive.
	ErrInvalidFrameRate = errors.New("encode: frame rate must be positive")
	// ErrInputMissing is returned when the input file does not exist or is unreadable.
	ErrInputMissing = errors.New("encode: input file missing or unreadable")
	// ErrNoSegments is returned when concatenation is requested with no segments.
	ErrNoSegments = errors.New("encode: no segments to concatenate")
)

// ClipSpec describes one still-to-clip encode: the staged input, the media
// parameters, and the codec profile.
type ClipSpec struct {
	InputPath   string
	DurationSec int
	FPS         int
	Width       int
	Height      int
	Profile     Profile
}

// Encoder abstracts the external encoding capability so the orchestrator
// never depends on a specific binary or binding.
type Encoder interface {
	// EncodeStill turns a still image into a standalone playable clip:
	// fit-and-pad to the target dimensions, held for the requested duration,
	// with a silently generated audio track.
	EncodeStill(ctx context.Context, spec ClipSpec, outputPath string) error

	// Concat joins already-encoded segments into one container by stream
	// copy, without re-encoding. Segments must share codec parameters,
	// which EncodeStill guarantees by construction.
	Concat(ctx context.Context, segmentPaths []string, outputPath string) error
}

// FFmpegEncoder implements Encoder using the ffmpeg CLI.
type FFmpegEncoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
}

// NewFFmpegEncoder creates a new FFmpegEncoder.
// If ffmpegPath is empty, it defaults to "ffmpeg" (found via PATH).
func NewFFmpegEncoder(ffmpegPath string) *FFmpegEncoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &FFmpegEncoder{ffmpegPath: ffmpegPath}
}

// EncodeStill encodes a still image into a clip per spec.
func (e *FFmpegEncoder) EncodeStill(ctx context.Context, spec ClipSpec, outputPath string) error {
	args, err := stillArgs(spec, outputPath)
	if err != nil {
		return err
	}

	// Fail before spawning the encoder when the input is gone.
	if _, err := os.Stat(spec.InputPath); err != nil {
		return fmt.Errorf("%w: %s", ErrInputMissing, spec.InputPath)
	}

	return e.run(ctx, args)
}

// stillArgs builds the ffmpeg invocation for a still-to-clip encode.
func stillArgs(spec ClipSpec, outputPath string) ([]string, error) {
	if spec.Width <= 0 || spec.Height <= 0 {
		return nil, fmt.Errorf("%w: width=%d, height=%d", ErrInvalidDimensions, spec.Width, spec.Height)
	}
	if spec.DurationSec <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDuration, spec.DurationSec)
	}
	if spec.FPS <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidFrameRate, spec.FPS)
	}

	prof := spec.Profile

	layout := "stereo"
	if prof.AudioChannels == 1 {
		layout = "mono"
	}

	args := []string{
		"-y",         // Overwrite output file without asking
		"-loop", "1", // Hold the still for the whole clip
		"-i", spec.InputPath,
		"-f", "lavfi", // Silent audio source, sized by -t/-shortest below
		"-i", fmt.Sprintf("anullsrc=channel_layout=%s:sample_rate=44100", layout),
		"-vf", FitAndPad(spec.Width, spec.Height, spec.FPS).Render(),
	}

	if prof.Codec != "" {
		args = append(args, "-c:v", prof.Codec)
	}
	if prof.Preset != "" {
		args = append(args, "-preset", prof.Preset)
	}
	if prof.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(prof.CRF))
	}
	if prof.MaxBitrate != "" {
		args = append(args, "-maxrate", prof.MaxBitrate, "-bufsize", prof.BufSize)
	}
	if prof.GOPSize > 0 {
		args = append(args, "-g", strconv.Itoa(prof.GOPSize))
	}

	args = append(args,
		"-c:a", "aac",
		"-b:a", prof.AudioBitrate,
		"-t", strconv.Itoa(spec.DurationSec), // Trim to exactly the requested duration
		"-shortest", // The shorter of video/audio bounds the output
	)

	if prof.FastStart {
		args = append(args, "-movflags", "+faststart")
	}

	args = append(args, outputPath)
	return args, nil
}

// Concat joins segments by stream copy using the concat demuxer.
func (e *FFmpegEncoder) Concat(ctx context.Context, segmentPaths []string, outputPath string) error {
	if len(segmentPaths) == 0 {
		return ErrNoSegments
	}

	listFile, err := writeConcatList(segmentPaths)
	if err != nil {
		return fmt.Errorf("create concat list: %w", err)
	}
	defer func() { _ = os.Remove(listFile) }()

	args := []string{
		"-y",
		"-f", "concat", // Use concat demuxer
		"-safe", "0", // Allow absolute paths
		"-i", listFile,
		"-c", "copy", // Copy streams without re-encoding
		outputPath,
	}
	return e.run(ctx, args)
}

// writeConcatList creates a temporary file containing the list of segments
// in the format required by ffmpeg's concat demuxer.
func writeConcatList(segmentPaths []string) (string, error) {
	f, err := os.CreateTemp("", "ffmpeg-concat-*.txt")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = f.Close() }()

	for _, p := range segmentPaths {
		absPath, err := filepath.Abs(p)
		if err != nil {
			return "", fmt.Errorf("get absolute path for %s: %w", p, err)
		}
		// Escape single quotes in path
		escapedPath := strings.ReplaceAll(absPath, "'", "'\\''")
		if _, err := fmt.Fprintf(f, "file '%s'\n", escapedPath); err != nil {
			return "", fmt.Errorf("write to concat list: %w", err)
		}
	}

	return f.Name(), nil
}

// run executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (e *FFmpegEncoder) run(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, e.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		// Check if context was cancelled
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: truncateOutput(stderr.Bytes()),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// truncateOutput caps captured stderr so a chatty encoder cannot bloat logs
// or responses.
func truncateOutput(output []byte) string {
	const maxLen = 500
	s := string(output)
	if len(s) > maxLen {
		return s[:maxLen] + "... (truncated)"
	}
	return s
}
