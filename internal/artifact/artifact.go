// Package artifact defines the finished video artifact and its identifier
// scheme. Identifiers are opaque random tokens; filenames derive from them
// deterministically so the output directory can be purged by pattern.
package artifact

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	// filePrefix and fileExt define the artifact filename pattern
	// "vid-<id>.mp4" used for purging the output directory.
	filePrefix = "vid-"
	fileExt    = ".mp4"
)

// Artifact is a finished, servable video file. Immutable once written.
type Artifact struct {
	// ID is the opaque unique identifier for the artifact.
	ID string
	// Filename is the artifact's filename inside the output directory.
	Filename string
	// Path is the absolute path of the artifact on disk.
	Path string
	// RelPath is the public-facing relative path (e.g. "videos/vid-<id>.mp4").
	RelPath string
}

// NewID generates a new artifact identifier.
// UUIDv4 gives 122 random bits, so IDs are not guessable or sequential.
func NewID() string {
	return uuid.NewString()
}

// FilenameFor returns the artifact filename for the given identifier.
func FilenameFor(id string) string {
	return filePrefix + id + fileExt
}

// New creates an Artifact with a fresh identifier rooted in outputDir.
// publicPrefix is the URL path segment under which artifacts are served.
func New(outputDir, publicPrefix string) Artifact {
	id := NewID()
	name := FilenameFor(id)
	return Artifact{
		ID:       id,
		Filename: name,
		Path:     filepath.Join(outputDir, name),
		RelPath:  publicPrefix + "/" + name,
	}
}

// MatchesFilename reports whether name follows the artifact filename pattern.
// Used by the workspace purge so unrelated files in the output directory are
// left alone.
func MatchesFilename(name string) bool {
	return strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExt)
}
