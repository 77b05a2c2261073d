package encode

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

// skipIfNoFFmpeg skips the test if ffmpeg is not available.
func skipIfNoFFmpeg(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		t.Skip("ffmpeg not found in PATH, skipping test")
	}
}

// createTestImage creates a simple solid color image using ffmpeg.
func createTestImage(t *testing.T, path string, width, height int) {
	t.Helper()

	cmd := exec.Command("ffmpeg",
		"-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=red:s=%dx%d:d=1", width, height),
		"-frames:v", "1",
		path,
	)
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("failed to create test image: %v\noutput: %s", err, output)
	}
}

// probe runs ffprobe and returns the trimmed stdout.
func probe(t *testing.T, args ...string) string {
	t.Helper()

	out, err := exec.Command("ffprobe", args...).Output()
	if err != nil {
		t.Fatalf("ffprobe failed: %v", err)
	}
	return strings.TrimSpace(string(out))
}

func TestNewFFmpegEncoder(t *testing.T) {
	t.Run("default path", func(t *testing.T) {
		e := NewFFmpegEncoder("")
		if e.ffmpegPath != "ffmpeg" {
			t.Errorf("expected default path 'ffmpeg', got %q", e.ffmpegPath)
		}
	})

	t.Run("custom path", func(t *testing.T) {
		e := NewFFmpegEncoder("/usr/local/bin/ffmpeg")
		if e.ffmpegPath != "/usr/local/bin/ffmpeg" {
			t.Errorf("expected custom path, got %q", e.ffmpegPath)
		}
	})
}

func TestStillArgs_Validation(t *testing.T) {
	valid := ClipSpec{
		InputPath:   "/tmp/in.jpg",
		DurationSec: 5,
		FPS:         24,
		Width:       720,
		Height:      1280,
		Profile:     Baseline(),
	}

	t.Run("invalid dimensions", func(t *testing.T) {
		spec := valid
		spec.Width = 0
		if _, err := stillArgs(spec, "out.mp4"); !errors.Is(err, ErrInvalidDimensions) {
			t.Errorf("expected ErrInvalidDimensions, got %v", err)
		}
	})

	t.Run("invalid duration", func(t *testing.T) {
		spec := valid
		spec.DurationSec = 0
		if _, err := stillArgs(spec, "out.mp4"); !errors.Is(err, ErrInvalidDuration) {
			t.Errorf("expected ErrInvalidDuration, got %v", err)
		}
	})

	t.Run("invalid frame rate", func(t *testing.T) {
		spec := valid
		spec.FPS = -1
		if _, err := stillArgs(spec, "out.mp4"); !errors.Is(err, ErrInvalidFrameRate) {
			t.Errorf("expected ErrInvalidFrameRate, got %v", err)
		}
	})
}

// hasPair reports whether args contains flag immediately followed by value.
func hasPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestStillArgs_Baseline(t *testing.T) {
	spec := ClipSpec{
		InputPath:   "/tmp/in.jpg",
		DurationSec: 5,
		FPS:         24,
		Width:       720,
		Height:      1280,
		Profile:     Baseline(),
	}

	args, err := stillArgs(spec, "/tmp/out.mp4")
	if err != nil {
		t.Fatalf("stillArgs() error = %v", err)
	}

	if !hasPair(args, "-t", "5") {
		t.Error("expected -t 5 to trim to the requested duration")
	}
	if !slices.Contains(args, "-shortest") {
		t.Error("expected -shortest")
	}
	if !hasPair(args, "-movflags", "+faststart") {
		t.Error("expected fast-start container flag")
	}
	if !hasPair(args, "-i", "anullsrc=channel_layout=stereo:sample_rate=44100") {
		t.Error("expected stereo silent audio source")
	}
	if !hasPair(args, "-b:a", "128k") {
		t.Error("expected 128k audio bitrate")
	}
	if !hasPair(args, "-vf", FitAndPad(720, 1280, 24).Render()) {
		t.Error("expected the fixed fit-and-pad filter pipeline")
	}
	if slices.Contains(args, "-crf") || slices.Contains(args, "-maxrate") || slices.Contains(args, "-g") {
		t.Error("baseline must not carry rate-control flags")
	}
	if args[len(args)-1] != "/tmp/out.mp4" {
		t.Errorf("expected output path last, got %q", args[len(args)-1])
	}
}

func TestStillArgs_Compressed(t *testing.T) {
	prof := Compressed(CompressedOptions{
		Codec:        "libx264",
		CRF:          28,
		Preset:       "veryfast",
		MaxBitrate:   "1M",
		BufSize:      "2M",
		GOPSize:      48,
		AudioBitrate: "64k",
	})
	spec := ClipSpec{
		InputPath:   "/tmp/in.png",
		DurationSec: 10,
		FPS:         30,
		Width:       1080,
		Height:      1920,
		Profile:     prof,
	}

	args, err := stillArgs(spec, "/tmp/out.mp4")
	if err != nil {
		t.Fatalf("stillArgs() error = %v", err)
	}

	if !hasPair(args, "-c:v", "libx264") {
		t.Error("expected codec libx264")
	}
	if !hasPair(args, "-crf", "28") {
		t.Error("expected -crf 28")
	}
	if !hasPair(args, "-preset", "veryfast") {
		t.Error("expected -preset veryfast")
	}
	if !hasPair(args, "-maxrate", "1M") || !hasPair(args, "-bufsize", "2M") {
		t.Error("expected bitrate ceiling with matching buffer size")
	}
	if !hasPair(args, "-g", "48") {
		t.Error("expected keyframe interval")
	}
	if !hasPair(args, "-i", "anullsrc=channel_layout=mono:sample_rate=44100") {
		t.Error("expected mono silent audio source")
	}
	if !hasPair(args, "-b:a", "64k") {
		t.Error("expected 64k audio bitrate")
	}
	if slices.Contains(args, "-movflags") {
		t.Error("compressed profile does not set container flags")
	}
}

func TestEncodeStill_MissingInput(t *testing.T) {
	e := NewFFmpegEncoder("")
	spec := ClipSpec{
		InputPath:   filepath.Join(t.TempDir(), "gone.jpg"),
		DurationSec: 1,
		FPS:         24,
		Width:       64,
		Height:      64,
		Profile:     Baseline(),
	}

	err := e.EncodeStill(context.Background(), spec, filepath.Join(t.TempDir(), "out.mp4"))
	if !errors.Is(err, ErrInputMissing) {
		t.Errorf("expected ErrInputMissing, got %v", err)
	}
}

func TestConcat_NoSegments(t *testing.T) {
	e := NewFFmpegEncoder("")
	err := e.Concat(context.Background(), nil, "out.mp4")
	if !errors.Is(err, ErrNoSegments) {
		t.Errorf("expected ErrNoSegments, got %v", err)
	}
}

func TestFFmpegError_Unwrap(t *testing.T) {
	inner := errors.New("exit status 1")
	err := &FFmpegError{Args: []string{"-i", "x"}, Stderr: "boom", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("expected FFmpegError to unwrap to the process error")
	}
	if !strings.Contains(err.Error(), "boom") {
		t.Error("expected stderr in the error message")
	}
}

func TestTruncateOutput(t *testing.T) {
	long := strings.Repeat("x", 600)
	got := truncateOutput([]byte(long))
	if len(got) >= 600 {
		t.Errorf("expected truncation, got %d chars", len(got))
	}
	if !strings.HasSuffix(got, "(truncated)") {
		t.Errorf("expected truncation marker, got %q", got[len(got)-20:])
	}

	if truncateOutput([]byte("short")) != "short" {
		t.Error("short output must pass through unchanged")
	}
}

func TestEncodeStill_Integration(t *testing.T) {
	skipIfNoFFmpeg(t)
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH, skipping test")
	}

	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "input.png")
	// A wide source forces both scaling and vertical padding.
	createTestImage(t, input, 640, 360)

	e := NewFFmpegEncoder("")
	out := filepath.Join(tmpDir, "out.mp4")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	spec := ClipSpec{
		InputPath:   input,
		DurationSec: 2,
		FPS:         24,
		Width:       320,
		Height:      480,
		Profile:     Baseline(),
	}
	if err := e.EncodeStill(ctx, spec, out); err != nil {
		t.Fatalf("EncodeStill() error = %v", err)
	}

	dims := probe(t,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		out,
	)
	if dims != "320x480" {
		t.Errorf("output dimensions = %s, want 320x480", dims)
	}

	dur := probe(t,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		out,
	)
	var seconds float64
	if _, err := fmt.Sscanf(dur, "%f", &seconds); err != nil {
		t.Fatalf("parse duration %q: %v", dur, err)
	}
	if seconds < 1.8 || seconds > 2.3 {
		t.Errorf("output duration = %.2fs, want ~2s", seconds)
	}

	if _, err := os.Stat(out); err != nil {
		t.Errorf("output file missing: %v", err)
	}
}

func TestConcat_Integration(t *testing.T) {
	skipIfNoFFmpeg(t)
	if _, err := exec.LookPath("ffprobe"); err != nil {
		t.Skip("ffprobe not found in PATH, skipping test")
	}

	tmpDir := t.TempDir()
	input := filepath.Join(tmpDir, "input.png")
	createTestImage(t, input, 320, 320)

	e := NewFFmpegEncoder("")
	prof := Compressed(CompressedOptions{
		Codec:        "libx264",
		CRF:          30,
		Preset:       "ultrafast",
		MaxBitrate:   "1M",
		BufSize:      "2M",
		GOPSize:      48,
		AudioBitrate: "64k",
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	// Both segments come from the same clip-building routine with the same
	// parameters, so stream copy is safe by construction.
	intro := filepath.Join(tmpDir, "intro.mp4")
	main := filepath.Join(tmpDir, "main.mp4")
	for _, seg := range []struct {
		path string
		dur  int
	}{{intro, 1}, {main, 2}} {
		spec := ClipSpec{
			InputPath:   input,
			DurationSec: seg.dur,
			FPS:         24,
			Width:       320,
			Height:      480,
			Profile:     prof,
		}
		if err := e.EncodeStill(ctx, spec, seg.path); err != nil {
			t.Fatalf("EncodeStill(%s) error = %v", seg.path, err)
		}
	}

	out := filepath.Join(tmpDir, "joined.mp4")
	if err := e.Concat(ctx, []string{intro, main}, out); err != nil {
		t.Fatalf("Concat() error = %v", err)
	}

	dur := probe(t,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		out,
	)
	var seconds float64
	if _, err := fmt.Sscanf(dur, "%f", &seconds); err != nil {
		t.Fatalf("parse duration %q: %v", dur, err)
	}
	if seconds < 2.7 || seconds > 3.4 {
		t.Errorf("joined duration = %.2fs, want ~3s (intro + main)", seconds)
	}
}
