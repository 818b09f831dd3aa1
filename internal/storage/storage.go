// Package storage holds generated project archives in durable blob
// storage under the key scheme {folder}/project.zip.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

// PresignTTL is how long retrieval URLs stay valid.
const PresignTTL = time.Hour

// ArchiveKey returns the storage key for a project folder.
func ArchiveKey(folder string) string {
	return folder + "/project.zip"
}

// Store is the artifact store every materializer and orchestrator
// depends on.
type Store interface {
	Upload(ctx context.Context, key string, data io.Reader) error
	Download(ctx context.Context, key string, w io.Writer) error
	Exists(ctx context.Context, key string) (bool, error)

	// PresignGet issues a time-limited retrieval URL for the key.
	PresignGet(ctx context.Context, key string) (string, error)
}

// DownloadError reports a failed transfer from the store.
type DownloadError struct {
	Key string
	Err error
}

func (e *DownloadError) Error() string {
	return fmt.Sprintf("failed to download %q: %v", e.Key, e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// UploadError reports a failed transfer to the store.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %q: %v", e.Key, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }
