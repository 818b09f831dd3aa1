// Package buildmachine turns packaged project archives into live
// deployments by driving the genezio CLI.
package buildmachine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ideaforge/internal/logging"
	"ideaforge/internal/metrics"
	"ideaforge/internal/project"
	"ideaforge/internal/storage"
)

// maxAttempts bounds disk-pressure retries. Retrying wraps the whole
// pipeline, not individual steps: after an ENOSPC cleanup the workspace
// is gone, so a fresh attempt has to start from the download.
const maxAttempts = 3

// Orchestrator runs the build pipeline: fetch the archive, analyze,
// patch the infra config, deploy, export the database URI, and report
// back to the core API.
type Orchestrator struct {
	store       storage.Store
	runner      Runner
	core        *CoreAPIClient
	stepTimeout time.Duration
}

// NewOrchestrator wires the pipeline.
func NewOrchestrator(store storage.Store, runner Runner, core *CoreAPIClient, stepTimeout time.Duration) *Orchestrator {
	if stepTimeout <= 0 {
		stepTimeout = 10 * time.Minute
	}
	return &Orchestrator{store: store, runner: runner, core: core, stepTimeout: stepTimeout}
}

// Run executes the full pipeline for one job. Disk-full failures
// trigger a cleanup and a full retry, up to maxAttempts. Concurrent
// runs for the same project are not serialized; the last callback to
// land wins.
func (o *Orchestrator) Run(ctx context.Context, job *Job) (*Outcome, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	log := logging.L().With(
		zap.String("project_id", job.ProjectID.String()),
		zap.String("project_name", job.ProjectName))

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		out, err := o.runOnce(ctx, job, log)
		if err == nil {
			metrics.BuildAttempts.WithLabelValues("success").Inc()
			return out, nil
		}
		if !isDiskFull(err) {
			metrics.BuildAttempts.WithLabelValues("error").Inc()
			return nil, err
		}

		metrics.BuildAttempts.WithLabelValues("disk_full").Inc()
		log.Warn("build hit disk pressure, cleaning up and retrying",
			zap.Int("attempt", attempt), zap.Error(err))
		cleanupDiskPressure(log)
		lastErr = err
	}
	return nil, fmt.Errorf("build failed after %d attempts: %w", maxAttempts, lastErr)
}

// runOnce performs a single end-to-end attempt in a fresh workspace.
func (o *Orchestrator) runOnce(ctx context.Context, job *Job, log *zap.Logger) (*Outcome, error) {
	workdir, cleanup, err := o.prepareWorkspace(ctx, job)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	if err := o.analyze(ctx, workdir, job); err != nil {
		return nil, err
	}

	if job.DatabaseName != "" {
		if err := patchInfraConfig(workdir, job.DatabaseName); err != nil {
			return nil, err
		}
	}

	out, err := o.deploy(ctx, workdir, job)
	if err != nil {
		return nil, err
	}

	// A missing database export is not fatal: projects without a
	// provisioned database deploy fine and simply report no URI.
	if uri, err := o.exportDatabaseURI(ctx, workdir, job); err != nil {
		log.Warn("database env export failed", zap.Error(err))
	} else {
		out.DatabaseURI = uri
	}
	out.DatabaseName = job.DatabaseName
	out.Region = job.Region

	if o.core != nil {
		if err := o.core.ReportDeployment(ctx, job.ProjectID, job.BearerToken, out); err != nil {
			return nil, &StepError{Step: "callback", Message: "failed to report deployment", Err: err}
		}
	}

	log.Info("deploy complete",
		zap.String("deployment_url", out.DeploymentURL),
		zap.String("infra_project_id", out.InfraProjectID))
	return out, nil
}

// prepareWorkspace downloads the project archive and unpacks the inner
// code archive into a scratch directory.
func (o *Orchestrator) prepareWorkspace(ctx context.Context, job *Job) (string, func(), error) {
	scratch, err := os.MkdirTemp("", "ideaforge-build-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create build workspace: %w", err)
	}
	cleanup := func() { os.RemoveAll(scratch) }

	var buf bytes.Buffer
	if err := o.store.Download(ctx, storage.ArchiveKey(job.Folder), &buf); err != nil {
		cleanup()
		return "", nil, &StepError{Step: "fetch", Message: "failed to download project archive", Err: err}
	}

	outerDir := filepath.Join(scratch, "outer")
	if err := project.Unzip(buf.Bytes(), outerDir); err != nil {
		cleanup()
		return "", nil, &StepError{Step: "fetch", Message: "failed to unpack project archive", Err: err}
	}

	inner, err := os.ReadFile(filepath.Join(outerDir, "code", "code.zip"))
	if err != nil {
		cleanup()
		return "", nil, &StepError{Step: "fetch", Message: "archive has no code/code.zip entry", Err: err}
	}

	workdir := filepath.Join(scratch, "code")
	if err := project.Unzip(inner, workdir); err != nil {
		cleanup()
		return "", nil, &StepError{Step: "fetch", Message: "failed to unpack code archive", Err: err}
	}
	return workdir, cleanup, nil
}

// analyze generates the infra config. The CLI reports some fatal
// conditions on stderr with a zero exit code, so any stderr line
// mentioning an error fails the step.
func (o *Orchestrator) analyze(ctx context.Context, workdir string, job *Job) error {
	stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()
	timer := time.Now()

	_, stderr, err := o.runner.Run(stepCtx, workdir,
		"analyze", "--name", job.ProjectName, "--region", job.Region)
	metrics.BuildStepDuration.WithLabelValues("analyze").Observe(time.Since(timer).Seconds())

	if err != nil {
		return &StepError{Step: "analyze", Message: strings.TrimSpace(stderr), Err: err}
	}
	if strings.Contains(strings.ToLower(stderr), "error") {
		return &StepError{Step: "analyze", Message: strings.TrimSpace(stderr)}
	}
	return nil
}

// patchInfraConfig rewrites the provisioned database name in the
// generated genezio.yaml.
func patchInfraConfig(workdir, dbName string) error {
	path := filepath.Join(workdir, "genezio.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return &StepError{Step: "configure", Message: "analyze produced no genezio.yaml", Err: err}
	}
	patched := rewriteDatabaseName(string(raw), dbName)
	if err := os.WriteFile(path, []byte(patched), 0o640); err != nil {
		return &StepError{Step: "configure", Message: "failed to rewrite genezio.yaml", Err: err}
	}
	return nil
}

// deploy pushes the project live and scrapes the deployment URL and
// infra project ID out of the CLI output.
func (o *Orchestrator) deploy(ctx context.Context, workdir string, job *Job) (*Outcome, error) {
	stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()
	timer := time.Now()

	stdout, stderr, err := o.runner.Run(stepCtx, workdir, "deploy", "--logLevel", "debug")
	metrics.BuildStepDuration.WithLabelValues("deploy").Observe(time.Since(timer).Seconds())

	combined := stdout + "\n" + stderr
	if err != nil {
		return nil, &StepError{Step: "deploy", Message: strings.TrimSpace(stderr), Err: err}
	}
	// The CLI surfaces a full disk on stdout with exit 0; it must reach
	// the retry loop, not be mistaken for a missing URL.
	if diskPressure(combined) {
		return nil, &StepError{Step: "deploy", Message: "ENOSPC: deploy host out of disk space"}
	}

	url := extractDeployURL(combined)
	if url == "" {
		return nil, &StepError{Step: "deploy", Message: "no deployment URL in CLI output"}
	}
	return &Outcome{
		DeploymentURL:  url,
		InfraProjectID: extractInfraProjectID(combined),
	}, nil
}

// exportDatabaseURI asks the CLI for the project's environment and
// scans it for a connection string. The export file gets a random
// suffix so concurrent builds on one host never collide.
func (o *Orchestrator) exportDatabaseURI(ctx context.Context, workdir string, job *Job) (string, error) {
	stepCtx, cancel := context.WithTimeout(ctx, o.stepTimeout)
	defer cancel()
	timer := time.Now()

	envName := ".env." + uuid.NewString()
	_, stderr, err := o.runner.Run(stepCtx, workdir,
		"getenv", "--projectName", job.ProjectName, "--output", envName, "--format", "env")
	metrics.BuildStepDuration.WithLabelValues("getenv").Observe(time.Since(timer).Seconds())

	if err != nil {
		return "", fmt.Errorf("getenv failed: %s: %w", strings.TrimSpace(stderr), err)
	}

	envPath := filepath.Join(workdir, envName)
	defer os.Remove(envPath)

	raw, err := os.ReadFile(envPath)
	if err != nil {
		return "", fmt.Errorf("getenv produced no env file: %w", err)
	}
	return extractDatabaseURI(string(raw)), nil
}

// diskPressure matches the failure modes a full deploy host produces.
func diskPressure(s string) bool {
	return strings.Contains(s, "ENOSPC") || strings.Contains(s, "no space left on device")
}

func isDiskFull(err error) bool {
	return err != nil && diskPressure(err.Error())
}

// cleanupDiskPressure reclaims scratch space the CLI and earlier builds
// left behind in /tmp.
func cleanupDiskPressure(log *zap.Logger) {
	for _, pattern := range []string{
		filepath.Join(os.TempDir(), "genezio*"),
		filepath.Join(os.TempDir(), "ideaforge-build-*"),
		filepath.Join(os.TempDir(), "ideaforge-materialize-*"),
	} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, m := range matches {
			if err := os.RemoveAll(m); err != nil {
				log.Warn("cleanup failed", zap.String("path", m), zap.Error(err))
			}
		}
	}
}
