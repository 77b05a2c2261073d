package server

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/stillcast/stillcast-api/internal/artifact"
)

// FileHandler serves completed artifacts read-only from the output
// directory. Only names matching the artifact filename pattern resolve;
// anything else (including traversal attempts) is a 404.
type FileHandler struct {
	outputDir string
}

// NewFileHandler creates a FileHandler rooted at outputDir.
func NewFileHandler(outputDir string) *FileHandler {
	return &FileHandler{outputDir: outputDir}
}

// ServeVideo handles GET /videos/{filename} requests.
func (f *FileHandler) ServeVideo(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("filename")
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		http.NotFound(w, r)
		return
	}
	if !artifact.MatchesFilename(name) {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "video/mp4")
	http.ServeFile(w, r, filepath.Join(f.outputDir, name))
}
