// Package workspace owns the lifecycle of the public output directory and
// the private staging namespace: idempotent directory creation, purging of
// finished artifacts, best-effort release of staged inputs, and sweeping of
// stale temp files. Purge-then-write sequences are serialized behind a
// per-manager lock so concurrent requests cannot interleave them.
package workspace

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/stillcast/stillcast-api/internal/artifact"
)

// Manager guards a single output directory and its staging namespace.
type Manager struct {
	outputDir string
	tempDir   string
	logger    *slog.Logger

	// mu serializes purge-then-write against the output directory.
	mu sync.Mutex
}

// NewManager creates a Manager and ensures the output directory exists.
func NewManager(outputDir, tempDir string, logger *slog.Logger) (*Manager, error) {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		outputDir: outputDir,
		tempDir:   tempDir,
		logger:    logger,
	}
	if err := m.EnsureOutputDir(); err != nil {
		return nil, err
	}
	return m, nil
}

// OutputDir returns the managed output directory path.
func (m *Manager) OutputDir() string {
	return m.outputDir
}

// EnsureOutputDir creates the output directory if it does not exist.
// Idempotent and safe to call concurrently.
func (m *Manager) EnsureOutputDir() error {
	if err := os.MkdirAll(m.outputDir, 0750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// WriteArtifact runs the purge-then-write sequence under the directory lock:
// every previously finished artifact is deleted, then write must produce the
// new artifact file. write runs while the lock is held, so two concurrent
// requests cannot interleave their purge and write steps.
func (m *Manager) WriteArtifact(write func() error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PurgeArtifacts()
	return write()
}

// InstallArtifact moves a finished clip from staging into the output
// directory under the artifact's filename, purging previous artifacts first.
// The whole purge-then-install sequence runs under the directory lock.
func (m *Manager) InstallArtifact(srcPath string, a artifact.Artifact) error {
	return m.WriteArtifact(func() error {
		if err := moveFile(srcPath, a.Path); err != nil {
			return fmt.Errorf("install artifact: %w", err)
		}
		return nil
	})
}

// moveFile renames src to dst, falling back to copy-and-remove when the
// staging and output directories sit on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src) // #nosec G304 - src is produced by the orchestrator
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0640) // #nosec G304
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	_ = os.Remove(src)
	return nil
}

// PurgeArtifacts deletes every file in the output directory matching the
// artifact filename pattern. Deletion failures are logged and swallowed:
// a stale file is acceptable degraded behavior, a missing directory is not,
// so the directory is re-created first.
func (m *Manager) PurgeArtifacts() {
	if err := m.EnsureOutputDir(); err != nil {
		m.logger.Warn("purge: ensure output directory failed",
			slog.String("dir", m.outputDir),
			slog.String("error", err.Error()),
		)
		return
	}

	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		m.logger.Warn("purge: list output directory failed",
			slog.String("dir", m.outputDir),
			slog.String("error", err.Error()),
		)
		return
	}

	for _, entry := range entries {
		if entry.IsDir() || !artifact.MatchesFilename(entry.Name()) {
			continue
		}
		p := filepath.Join(m.outputDir, entry.Name())
		if err := os.Remove(p); err != nil {
			m.logger.Warn("purge: remove artifact failed",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
			continue
		}
		m.logger.Debug("purged artifact", slog.String("path", p))
	}
}

// ReleaseStaged removes a staged input file. Best effort: failures are
// logged and swallowed, the filesystem eventually reclaims temp space.
func (m *Manager) ReleaseStaged(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		m.logger.Warn("release staged input failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// SweepTemp removes regular files in the staging namespace older than
// maxAge. Returns the number of files removed.
func (m *Manager) SweepTemp(maxAge time.Duration) int {
	entries, err := os.ReadDir(m.tempDir)
	if err != nil {
		m.logger.Warn("sweep: list temp directory failed",
			slog.String("dir", m.tempDir),
			slog.String("error", err.Error()),
		)
		return 0
	}

	removed := 0
	now := time.Now()
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) <= maxAge {
			continue
		}
		p := filepath.Join(m.tempDir, entry.Name())
		if err := os.Remove(p); err != nil {
			m.logger.Warn("sweep: remove stale temp file failed",
				slog.String("path", p),
				slog.String("error", err.Error()),
			)
			continue
		}
		removed++
	}

	if removed > 0 {
		m.logger.Info("swept stale temp files",
			slog.String("dir", m.tempDir),
			slog.Int("removed", removed),
		)
	}
	return removed
}

// StartTempSweeper schedules SweepTemp on the given cron spec (e.g.
// "@every 15m") and returns the running scheduler so the caller can stop it
// at shutdown.
func (m *Manager) StartTempSweeper(spec string, maxAge time.Duration) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { m.SweepTemp(maxAge) }); err != nil {
		return nil, fmt.Errorf("schedule temp sweeper: %w", err)
	}
	c.Start()
	return c, nil
}
