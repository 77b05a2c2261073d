package workspace

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillcast/stillcast-api/internal/artifact"
)

func newTestManager(t *testing.T) (*Manager, string, string) {
	t.Helper()
	outDir := filepath.Join(t.TempDir(), "videos")
	tempDir := t.TempDir()
	m, err := NewManager(outDir, tempDir, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	return m, outDir, tempDir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0640))
}

func TestNewManager_CreatesOutputDir(t *testing.T) {
	m, outDir, _ := newTestManager(t)

	info, err := os.Stat(outDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	// Idempotent.
	require.NoError(t, m.EnsureOutputDir())
}

func TestPurgeArtifacts(t *testing.T) {
	m, outDir, _ := newTestManager(t)

	old := artifact.New(outDir, "videos")
	writeFile(t, old.Path, "old clip")
	writeFile(t, filepath.Join(outDir, "notes.txt"), "keep me")
	writeFile(t, filepath.Join(outDir, "other.mp4"), "not an artifact")

	m.PurgeArtifacts()

	_, err := os.Stat(old.Path)
	assert.True(t, os.IsNotExist(err), "artifact should be purged")

	for _, keep := range []string{"notes.txt", "other.mp4"} {
		_, err := os.Stat(filepath.Join(outDir, keep))
		assert.NoError(t, err, "%s should survive the purge", keep)
	}
}

func TestPurgeArtifacts_RecreatesMissingDir(t *testing.T) {
	m, outDir, _ := newTestManager(t)
	require.NoError(t, os.RemoveAll(outDir))

	m.PurgeArtifacts()

	info, err := os.Stat(outDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestInstallArtifact(t *testing.T) {
	m, outDir, tempDir := newTestManager(t)

	old := artifact.New(outDir, "videos")
	writeFile(t, old.Path, "previous")

	src := filepath.Join(tempDir, "clip_new.mp4")
	writeFile(t, src, "new clip")

	a := artifact.New(outDir, "videos")
	require.NoError(t, m.InstallArtifact(src, a))

	content, err := os.ReadFile(a.Path)
	require.NoError(t, err)
	assert.Equal(t, "new clip", string(content))

	// The source is gone, the old artifact was purged first.
	_, err = os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(old.Path)
	assert.True(t, os.IsNotExist(err))

	// Steady state: exactly one artifact in the directory.
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	count := 0
	for _, e := range entries {
		if artifact.MatchesFilename(e.Name()) {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestWriteArtifact_Serializes(t *testing.T) {
	m, _, _ := newTestManager(t)

	var mu sync.Mutex
	inCritical := 0
	maxInCritical := 0

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.WriteArtifact(func() error {
				mu.Lock()
				inCritical++
				if inCritical > maxInCritical {
					maxInCritical = inCritical
				}
				mu.Unlock()

				time.Sleep(5 * time.Millisecond)

				mu.Lock()
				inCritical--
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, maxInCritical, "purge-then-write sequences must not interleave")
}

func TestReleaseStaged(t *testing.T) {
	m, _, tempDir := newTestManager(t)

	p := filepath.Join(tempDir, "input_abc.jpg")
	writeFile(t, p, "staged")

	m.ReleaseStaged(p)
	_, err := os.Stat(p)
	assert.True(t, os.IsNotExist(err))

	// Best effort: missing files and empty paths are fine.
	m.ReleaseStaged(p)
	m.ReleaseStaged("")
}

func TestSweepTemp(t *testing.T) {
	m, _, tempDir := newTestManager(t)

	stale := filepath.Join(tempDir, "input_old.jpg")
	fresh := filepath.Join(tempDir, "input_new.jpg")
	writeFile(t, stale, "old")
	writeFile(t, fresh, "new")

	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(stale, past, past))

	removed := m.SweepTemp(time.Hour)

	assert.Equal(t, 1, removed)
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(fresh)
	assert.NoError(t, err)
}

func TestStartTempSweeper(t *testing.T) {
	m, _, _ := newTestManager(t)

	c, err := m.StartTempSweeper("@every 1h", time.Hour)
	require.NoError(t, err)
	c.Stop()

	_, err = m.StartTempSweeper("not a schedule", time.Hour)
	assert.Error(t, err)
}
