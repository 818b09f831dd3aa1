package buildmachine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ideaforge/internal/project"
	"ideaforge/internal/storage"
)

const (
	deployOutput = "Deploying backend...\n" +
		"Dashboard: https://app.genez.io/project/3f2a1b4c-9d8e-4f00-a1b2-c3d4e5f60718/overview\n" +
		"Your app is live at https://todo-api.eu-central-1.cloud.genez.io\n"

	wantDeployURL = "https://todo-api.eu-central-1.cloud.genez.io"
	wantInfraID   = "3f2a1b4c-9d8e-4f00-a1b2-c3d4e5f60718"
)

// memStore is an in-memory artifact store seeded with test archives.
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
		return err
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
	return "https://artifacts.example.test/" + key, nil
}

// seedArchive packages files into the two-level archive layout and
// stores it under the job folder.
func seedArchive(t *testing.T, store *memStore, folder string, files map[string]string) {
	t.Helper()

	codeDir := t.TempDir()
	for path, content := range files {
		full := filepath.Join(codeDir, filepath.FromSlash(path))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o750))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o640))
	}
	inner, err := project.ZipDir(codeDir)
	require.NoError(t, err)

	stage := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(stage, "code"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(stage, "code", "code.zip"), inner, 0o640))
	outer, err := project.ZipDir(stage)
	require.NoError(t, err)

	store.mu.Lock()
	store.objects[storage.ArchiveKey(folder)] = outer
	store.mu.Unlock()
}

// fakeRunner scripts CLI behavior per step, counting invocations.
type fakeRunner struct {
	mu     sync.Mutex
	counts map[string]int

	analyze func(n int) (string, string, error)
	deploy  func(n int, dir string) (string, string, error)
	getenv  func(n int, dir string, args []string) (string, string, error)
}

func (f *fakeRunner) Run(ctx context.Context, dir string, args ...string) (string, string, error) {
	f.mu.Lock()
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[args[0]]++
	n := f.counts[args[0]]
	f.mu.Unlock()

	switch args[0] {
	case "analyze":
		if f.analyze != nil {
			return f.analyze(n)
		}
		return "analysis complete", "", nil
	case "deploy":
		if f.deploy != nil {
			return f.deploy(n, dir)
		}
		return deployOutput, "", nil
	case "getenv":
		if f.getenv != nil {
			return f.getenv(n, dir, args)
		}
		return writeEnvFile(dir, args, "MONGODB_URI=mongodb+srv://u:p@cluster0.mongodb.net/app\n")
	default:
		return "", "", errors.New("unexpected command: " + args[0])
	}
}

func (f *fakeRunner) count(step string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[step]
}

// writeEnvFile creates the export file getenv is asked for via --output.
func writeEnvFile(dir string, args []string, content string) (string, string, error) {
	for i, a := range args {
		if a == "--output" && i+1 < len(args) {
			return "", "", os.WriteFile(filepath.Join(dir, args[i+1]), []byte(content), 0o640)
		}
	}
	return "", "", errors.New("no --output flag")
}

func testJob() *Job {
	return &Job{
		ProjectID:   uuid.New(),
		Folder:      "proj-build",
		ProjectName: "todo-api",
		BearerToken: "caller-token",
	}
}

func TestOrchestratorHappyPath(t *testing.T) {
	store := newMemStore()
	seedArchive(t, store, "proj-build", map[string]string{
		"package.json": `{"name":"todo-api"}`,
		"src/app.mjs":  "export const app = 1;",
	})
	runner := &fakeRunner{}

	var (
		gotPath   string
		gotBearer string
		gotBody   Outcome
	)
	core := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotBearer = r.Header.Get("Authorization")
		require.Equal(t, http.MethodPut, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.WriteHeader(http.StatusOK)
	}))
	defer core.Close()

	orch := NewOrchestrator(store, runner, NewCoreAPIClient(core.URL, nil), time.Minute)
	job := testJob()

	out, err := orch.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, wantDeployURL, out.DeploymentURL)
	assert.Equal(t, wantInfraID, out.InfraProjectID)
	assert.Equal(t, "mongodb+srv://u:p@cluster0.mongodb.net/app", out.DatabaseURI)
	assert.Equal(t, "eu-central-1", out.Region, "region defaults when unset")

	assert.Equal(t, "/v1/project/update/"+job.ProjectID.String()+"/deployment-url", gotPath)
	assert.Equal(t, "Bearer caller-token", gotBearer)
	assert.Equal(t, wantDeployURL, gotBody.DeploymentURL)
}

func TestOrchestratorPatchesDatabaseName(t *testing.T) {
	store := newMemStore()
	seedArchive(t, store, "proj-build", map[string]string{
		"genezio.yaml": "services:\n  databases:\n    - name: my-default-db\nenv: ${{services.databases.my-default-db.uri}}\n",
	})

	var patched string
	runner := &fakeRunner{
		deploy: func(n int, dir string) (string, string, error) {
			raw, err := os.ReadFile(filepath.Join(dir, "genezio.yaml"))
			if err != nil {
				return "", "", err
			}
			patched = string(raw)
			return deployOutput, "", nil
		},
	}

	orch := NewOrchestrator(store, runner, nil, time.Minute)
	job := testJob()
	job.DatabaseName = "todo-db"

	out, err := orch.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "todo-db", out.DatabaseName)
	assert.Contains(t, patched, "- name: todo-db")
	assert.Contains(t, patched, "${{services.databases.todo-db.uri}}")
}

func TestOrchestratorAnalyzeStderrIsFatal(t *testing.T) {
	store := newMemStore()
	seedArchive(t, store, "proj-build", map[string]string{"a.txt": "x"})

	// Exit code zero, but the CLI reported a problem on stderr.
	runner := &fakeRunner{
		analyze: func(n int) (string, string, error) {
			return "done", "Error: unsupported project layout", nil
		},
	}
	orch := NewOrchestrator(store, runner, nil, time.Minute)

	_, err := orch.Run(context.Background(), testJob())
	require.Error(t, err)

	var step *StepError
	require.ErrorAs(t, err, &step)
	assert.Equal(t, "analyze", step.Step)
	assert.Equal(t, 0, runner.count("deploy"), "deploy must not run after a failed analyze")
}

func TestOrchestratorRetriesOnDiskPressure(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir()) // keep retry cleanup away from the shared temp dir

	store := newMemStore()
	seedArchive(t, store, "proj-build", map[string]string{"a.txt": "x"})

	runner := &fakeRunner{
		deploy: func(n int, dir string) (string, string, error) {
			if n < 3 {
				return "", "ENOSPC: no space left on device", errors.New("no space left on device")
			}
			return deployOutput, "", nil
		},
	}
	orch := NewOrchestrator(store, runner, nil, time.Minute)

	out, err := orch.Run(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, wantDeployURL, out.DeploymentURL)
	assert.Equal(t, 3, runner.count("deploy"))
	assert.Equal(t, 3, runner.count("analyze"), "each retry restarts the whole pipeline")
}

func TestOrchestratorRetriesOnDiskPressureInStdout(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	store := newMemStore()
	seedArchive(t, store, "proj-build", map[string]string{"a.txt": "x"})

	// The CLI exits 0 and reports the full disk on stdout only.
	runner := &fakeRunner{
		deploy: func(n int, dir string) (string, string, error) {
			if n < 3 {
				return "npm ERR! code ENOSPC\nnpm ERR! errno -28", "", nil
			}
			return deployOutput, "", nil
		},
	}
	orch := NewOrchestrator(store, runner, nil, time.Minute)

	out, err := orch.Run(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, wantDeployURL, out.DeploymentURL)
	assert.Equal(t, 3, runner.count("deploy"))
}

func TestOrchestratorGivesUpAfterRepeatedDiskPressure(t *testing.T) {
	t.Setenv("TMPDIR", t.TempDir())

	store := newMemStore()
	seedArchive(t, store, "proj-build", map[string]string{"a.txt": "x"})

	runner := &fakeRunner{
		deploy: func(n int, dir string) (string, string, error) {
			return "", "", errors.New("ENOSPC: no space left on device")
		},
	}
	orch := NewOrchestrator(store, runner, nil, time.Minute)

	_, err := orch.Run(context.Background(), testJob())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, runner.count("deploy"))
}

func TestOrchestratorToleratesGetenvFailure(t *testing.T) {
	store := newMemStore()
	seedArchive(t, store, "proj-build", map[string]string{"a.txt": "x"})

	runner := &fakeRunner{
		getenv: func(n int, dir string, args []string) (string, string, error) {
			return "", "project has no environment", errors.New("exit status 1")
		},
	}
	orch := NewOrchestrator(store, runner, nil, time.Minute)

	out, err := orch.Run(context.Background(), testJob())
	require.NoError(t, err, "a project without a database still deploys")
	assert.Equal(t, wantDeployURL, out.DeploymentURL)
	assert.Equal(t, "", out.DatabaseURI)
}

func TestOrchestratorMissingArchive(t *testing.T) {
	orch := NewOrchestrator(newMemStore(), &fakeRunner{}, nil, time.Minute)

	_, err := orch.Run(context.Background(), testJob())
	require.Error(t, err)

	var step *StepError
	require.ErrorAs(t, err, &step)
	assert.Equal(t, "fetch", step.Step)
}
