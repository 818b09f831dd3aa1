package buildmachine

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"

	"go.uber.org/zap"

	"ideaforge/internal/logging"
)

// Runner executes infra CLI commands in a working directory and returns
// the separated output streams. Split out as an interface so the
// orchestrator can be tested without the CLI installed.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) (stdout, stderr string, err error)
}

// GenezioRunner runs the genezio CLI as a subprocess. The environment
// is pinned for non-interactive use: CI mode, telemetry off, and HOME
// pointed at /tmp because the deploy host's real home is read-only.
type GenezioRunner struct {
	Binary string
	Token  string
}

// NewGenezioRunner builds a runner using the CLI on PATH.
func NewGenezioRunner(token string) *GenezioRunner {
	return &GenezioRunner{Binary: "genezio", Token: token}
}

// Run executes one CLI invocation.
func (g *GenezioRunner) Run(ctx context.Context, dir string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, g.Binary, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(),
		"CI=true",
		"GENEZIO_TOKEN="+g.Token,
		"GENEZIO_NO_TELEMETRY=1",
		"HOME=/tmp",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logging.L().Debug("running infra cli",
		zap.Strings("args", args),
		zap.String("dir", dir))

	err := cmd.Run()
	if err != nil {
		err = fmt.Errorf("genezio %v: %w", args, err)
	}
	return stdout.String(), stderr.String(), err
}
