// Package storage provides the staging area for transient files and optional
// remote publishing of finished artifacts. Staged inputs and intermediate
// encode segments live in a private temp directory that is never served;
// publishing mirrors a finished artifact to S3 when configured.
package storage

import (
	"context"
	"io"
)

// Storage defines the interface for staging transient files and publishing
// finished artifacts.
type Storage interface {
	// SaveTemp writes data to a new file in the staging directory and
	// returns its path. The name parameter is used as a filename hint.
	// On a write error the partial file is removed before returning.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// CleanupTemp removes the given staged files. It keeps going when
	// individual deletes fail and returns the first error encountered.
	CleanupTemp(ctx context.Context, paths []string) error

	// Publish mirrors a finished artifact to remote storage and returns its
	// public URL. Returns ErrPublishNotConfigured when no remote backend is
	// configured.
	Publish(ctx context.Context, key string, data io.Reader) (url string, err error)
}
