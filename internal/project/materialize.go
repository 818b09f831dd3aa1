package project

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"ideaforge/internal/logging"
	"ideaforge/internal/storage"
)

// innerArchiveName is the nested code archive inside the packaged
// project zip. The build machine expects the layout code/code.zip.
const innerArchiveName = "code/code.zip"

// Materializer writes generated file trees into the packaged project
// archive. An existing archive for the folder is merged: files from the
// new tree replace same-path files, everything else survives.
type Materializer struct {
	store storage.Store
}

// NewMaterializer creates a materializer over the given artifact store.
func NewMaterializer(store storage.Store) *Materializer {
	return &Materializer{store: store}
}

// Result describes a finished materialization.
type Result struct {
	Key          string
	PresignedURL string
}

// Materialize merges tree into the archive for folder, uploads the
// result, and returns a presigned retrieval URL. Scratch space is
// cleaned up on every path.
func (m *Materializer) Materialize(ctx context.Context, folder string, tree *Tree) (*Result, error) {
	if err := tree.Validate(); err != nil {
		return nil, fmt.Errorf("invalid project tree: %w", err)
	}

	scratch, err := os.MkdirTemp("", "ideaforge-materialize-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	codeDir := filepath.Join(scratch, "code")
	if err := os.MkdirAll(codeDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create code directory: %w", err)
	}

	key := storage.ArchiveKey(folder)
	if err := m.restoreExisting(ctx, key, codeDir); err != nil {
		return nil, err
	}

	if err := WriteTree(codeDir, tree); err != nil {
		return nil, err
	}

	outer, err := packageArchive(codeDir)
	if err != nil {
		return nil, err
	}

	if err := m.store.Upload(ctx, key, bytes.NewReader(outer)); err != nil {
		return nil, err
	}

	url, err := m.store.PresignGet(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to presign %q: %w", key, err)
	}

	logging.L().Info("materialized project archive",
		zap.String("key", key),
		zap.Int("nodes", len(tree.Structure)),
		zap.Int("archive_bytes", len(outer)))

	return &Result{Key: key, PresignedURL: url}, nil
}

// restoreExisting unpacks the current archive for key into codeDir so a
// regeneration merges instead of replacing. A missing archive is the
// first-generation case and not an error; a corrupt one is.
func (m *Materializer) restoreExisting(ctx context.Context, key, codeDir string) error {
	exists, err := m.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("failed to check for existing archive %q: %w", key, err)
	}
	if !exists {
		return nil
	}

	var buf bytes.Buffer
	if err := m.store.Download(ctx, key, &buf); err != nil {
		var notFound *storage.DownloadError
		// Lost a race with a delete between Exists and Download.
		if errors.As(err, &notFound) {
			logging.L().Warn("archive disappeared before download", zap.String("key", key))
			return nil
		}
		return err
	}

	outerDir, err := os.MkdirTemp("", "ideaforge-restore-*")
	if err != nil {
		return fmt.Errorf("failed to create restore directory: %w", err)
	}
	defer os.RemoveAll(outerDir)

	if err := Unzip(buf.Bytes(), outerDir); err != nil {
		return fmt.Errorf("failed to unpack existing archive %q: %w", key, err)
	}

	inner, err := os.ReadFile(filepath.Join(outerDir, filepath.FromSlash(innerArchiveName)))
	if err != nil {
		return fmt.Errorf("archive %q has no %s entry: %w", key, innerArchiveName, err)
	}
	if err := Unzip(inner, codeDir); err != nil {
		return fmt.Errorf("failed to unpack code archive from %q: %w", key, err)
	}
	return nil
}

// WriteTree writes every node of tree under root. Parent directories
// are created as needed and file nodes with no content become empty
// files, so a tree that omits directory entries still lands intact.
func WriteTree(root string, tree *Tree) error {
	for _, node := range tree.Structure {
		cleaned, err := CleanPath(node.Path)
		if err != nil {
			return err
		}
		target := filepath.Join(root, filepath.FromSlash(cleaned))

		if node.Type == NodeDirectory {
			if err := os.MkdirAll(target, 0o750); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", node.Path, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return fmt.Errorf("failed to create parent of %q: %w", node.Path, err)
		}

		var data []byte
		if !node.Content.Absent() {
			data, err = node.Content.FileBytes()
			if err != nil {
				return fmt.Errorf("failed to render %q: %w", node.Path, err)
			}
		}
		if err := os.WriteFile(target, data, 0o640); err != nil {
			return fmt.Errorf("failed to write %q: %w", node.Path, err)
		}
	}
	return nil
}

// packageArchive zips codeDir into code/code.zip and wraps it in the
// outer archive the build machine consumes.
func packageArchive(codeDir string) ([]byte, error) {
	inner, err := ZipDir(codeDir)
	if err != nil {
		return nil, fmt.Errorf("failed to archive project code: %w", err)
	}

	stage, err := os.MkdirTemp("", "ideaforge-package-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create packaging directory: %w", err)
	}
	defer os.RemoveAll(stage)

	innerPath := filepath.Join(stage, filepath.FromSlash(innerArchiveName))
	if err := os.MkdirAll(filepath.Dir(innerPath), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create packaging layout: %w", err)
	}
	if err := os.WriteFile(innerPath, inner, 0o640); err != nil {
		return nil, fmt.Errorf("failed to stage code archive: %w", err)
	}

	outer, err := ZipDir(stage)
	if err != nil {
		return nil, fmt.Errorf("failed to build outer archive: %w", err)
	}
	return outer, nil
}
