package server

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stillcast/stillcast-api/internal/artifact"
)

func TestServeVideo(t *testing.T) {
	outputDir := t.TempDir()
	a := artifact.New(outputDir, "videos")
	require.NoError(t, os.WriteFile(a.Path, []byte("mp4 bytes"), 0o600))

	// A file that exists but does not match the artifact pattern must stay
	// unreachable.
	require.NoError(t, os.WriteFile(filepath.Join(outputDir, "secrets.txt"), []byte("nope"), 0o600))

	fh := NewFileHandler(outputDir)

	serve := func(name string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/videos/"+name, nil)
		req.SetPathValue("filename", name)
		rec := httptest.NewRecorder()
		fh.ServeVideo(rec, req)
		return rec
	}

	t.Run("serves artifact", func(t *testing.T) {
		rec := serve(a.Filename)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "video/mp4", rec.Header().Get("Content-Type"))
		assert.Equal(t, "mp4 bytes", rec.Body.String())
	})

	t.Run("missing artifact", func(t *testing.T) {
		rec := serve(artifact.FilenameFor(artifact.NewID()))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("non-artifact names are 404", func(t *testing.T) {
		for _, name := range []string{"secrets.txt", "video.mp4", "vid-.mp4", ""} {
			rec := serve(name)
			assert.Equal(t, http.StatusNotFound, rec.Code, "name %q must not resolve", name)
		}
	})

	t.Run("traversal attempts are 404", func(t *testing.T) {
		for _, name := range []string{
			"../secrets.txt",
			"..%2Fsecrets.txt",
			"subdir/" + a.Filename,
			"..",
		} {
			rec := serve(name)
			assert.Equal(t, http.StatusNotFound, rec.Code, "name %q must not resolve", name)
		}
	})
}
