package project

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaforge/internal/storage"
)

// memStore is an in-memory artifact store.
type memStore struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{objects: make(map[string][]byte)}
}

func (m *memStore) Upload(ctx context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return &storage.UploadError{Key: key, Err: err}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = raw
	return nil
}

func (m *memStore) Download(ctx context.Context, key string, w io.Writer) error {
	m.mu.Lock()
	raw, ok := m.objects[key]
	m.mu.Unlock()
	if !ok {
		return &storage.DownloadError{Key: key, Err: os.ErrNotExist}
	}
	_, err := w.Write(raw)
	return err
}

func (m *memStore) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *memStore) PresignGet(ctx context.Context, key string) (string, error) {
	return "https://artifacts.example.test/" + key + "?signed=1", nil
}

// unpackCode returns the code files inside the archive stored at key,
// path -> content.
func unpackCode(t *testing.T, store *memStore, key string) map[string]string {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, store.Download(context.Background(), key, &buf))

	outerDir := t.TempDir()
	require.NoError(t, Unzip(buf.Bytes(), outerDir))

	inner, err := os.ReadFile(filepath.Join(outerDir, "code", "code.zip"))
	require.NoError(t, err)

	codeDir := t.TempDir()
	require.NoError(t, Unzip(inner, codeDir))

	files := make(map[string]string)
	err = filepath.Walk(codeDir, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		rel, err := filepath.Rel(codeDir, p)
		if err != nil {
			return err
		}
		raw, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		files[filepath.ToSlash(rel)] = string(raw)
		return nil
	})
	require.NoError(t, err)
	return files
}

func TestMaterializeFirstGeneration(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	m := NewMaterializer(store)

	tree := &Tree{Structure: []Node{
		{Type: NodeDirectory, Path: "./src"},
		{Type: NodeFile, Path: "./src/app.mjs", Content: TextContent("export const app = 1;")},
		{Type: NodeFile, Path: "./package.json", Content: StructuredContent([]byte(`{"name":"api"}`))},
		{Type: NodeFile, Path: "./empty.txt"},
	}}

	res, err := m.Materialize(context.Background(), "proj-1", tree)
	require.NoError(t, err)
	assert.Equal(t, "proj-1/project.zip", res.Key)
	assert.Contains(t, res.PresignedURL, "proj-1/project.zip")

	files := unpackCode(t, store, res.Key)
	assert.Equal(t, "export const app = 1;", files["src/app.mjs"])
	assert.Equal(t, "{\n  \"name\": \"api\"\n}", files["package.json"])
	assert.Equal(t, "", files["empty.txt"])
}

func TestMaterializeMergesExistingArchive(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	m := NewMaterializer(store)
	ctx := context.Background()

	first := &Tree{Structure: []Node{
		{Type: NodeFile, Path: "./keep.txt", Content: TextContent("untouched")},
		{Type: NodeFile, Path: "./replace.txt", Content: TextContent("old")},
	}}
	_, err := m.Materialize(ctx, "proj-2", first)
	require.NoError(t, err)

	second := &Tree{Structure: []Node{
		{Type: NodeFile, Path: "./replace.txt", Content: TextContent("new")},
		{Type: NodeFile, Path: "./added.txt", Content: TextContent("fresh")},
	}}
	res, err := m.Materialize(ctx, "proj-2", second)
	require.NoError(t, err)

	files := unpackCode(t, store, res.Key)
	assert.Equal(t, "untouched", files["keep.txt"], "untouched files survive regeneration")
	assert.Equal(t, "new", files["replace.txt"], "regenerated files win")
	assert.Equal(t, "fresh", files["added.txt"])
}

func TestMaterializeIdempotent(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	m := NewMaterializer(store)
	ctx := context.Background()

	tree := &Tree{Structure: []Node{
		{Type: NodeFile, Path: "./a.txt", Content: TextContent("same")},
	}}

	res1, err := m.Materialize(ctx, "proj-3", tree)
	require.NoError(t, err)
	files1 := unpackCode(t, store, res1.Key)

	res2, err := m.Materialize(ctx, "proj-3", tree)
	require.NoError(t, err)
	files2 := unpackCode(t, store, res2.Key)

	assert.Equal(t, files1, files2)
}

func TestMaterializeRejectsInvalidTree(t *testing.T) {
	t.Parallel()

	m := NewMaterializer(newMemStore())
	_, err := m.Materialize(context.Background(), "proj-4", &Tree{Structure: []Node{
		{Type: NodeFile, Path: "../../etc/passwd", Content: TextContent("x")},
	}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid project tree")
}
