package installer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Tool invokes the npm CLI against extension install targets.
type Tool struct {
	npmPath     string
	registryURL string
}

// Option configures a Tool.
type Option func(*Tool)

// WithPath sets an explicit npm executable path, skipping PATH lookup.
func WithPath(path string) Option {
	return func(t *Tool) {
		t.npmPath = path
	}
}

// WithRegistryURL points install invocations at a specific registry.
func WithRegistryURL(url string) Option {
	return func(t *Tool) {
		t.registryURL = url
	}
}

// NewTool resolves the npm executable once and returns a ready Tool.
func NewTool(opts ...Option) (*Tool, error) {
	t := &Tool{}
	for _, opt := range opts {
		opt(t)
	}

	if t.npmPath == "" {
		path, err := exec.LookPath("npm")
		if err != nil {
			return nil, fmt.Errorf("locating npm: %w", err)
		}
		t.npmPath = path
	} else if _, err := os.Stat(t.npmPath); err != nil {
		return nil, fmt.Errorf("locating npm at %s: %w", t.npmPath, err)
	}

	return t, nil
}

// Path returns the resolved npm executable path.
func (t *Tool) Path() string {
	return t.npmPath
}

// Result holds the outcome of a completed installer invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Invocation is a launched installer subprocess whose completion has not yet
// been awaited.
type Invocation struct {
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// Start launches an npm install of artifactRef into targetDir and returns
// without waiting for completion. The subprocess runs with targetDir as its
// working directory and its output captured.
func (t *Tool) Start(ctx context.Context, targetDir, artifactRef string, force bool) (*Invocation, error) {
	args := []string{"install", artifactRef, "--prefix", targetDir, "--no-save", "--no-audit", "--prefer-offline"}
	if force {
		args = append(args, "--force")
	}
	if t.registryURL != "" {
		args = append(args, "--registry", t.registryURL)
	}

	inv := &Invocation{}
	cmd := exec.CommandContext(ctx, t.npmPath, args...)
	cmd.Dir = targetDir
	cmd.Stdout = &inv.stdout
	cmd.Stderr = &inv.stderr

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("launching %s install: %w", t.npmPath, err)
	}
	inv.cmd = cmd
	return inv, nil
}

// Wait blocks until the invocation completes. The Result is returned even on
// failure; the error carries the exit status and trailing stderr.
func (inv *Invocation) Wait() (*Result, error) {
	err := inv.cmd.Wait()

	result := &Result{
		Stdout: inv.stdout.String(),
		Stderr: inv.stderr.String(),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
			return result, fmt.Errorf("npm install exited with status %d: %s", result.ExitCode, stderrTail(result.Stderr))
		}
		return result, fmt.Errorf("awaiting npm install: %w", err)
	}

	return result, nil
}

// Invoke launches an install and waits for it to finish.
func (t *Tool) Invoke(ctx context.Context, targetDir, artifactRef string, force bool) (*Result, error) {
	inv, err := t.Start(ctx, targetDir, artifactRef, force)
	if err != nil {
		return nil, err
	}
	return inv.Wait()
}

// stderrTail returns the last few lines of stderr for error messages.
func stderrTail(stderr string) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	if len(lines) > 4 {
		lines = lines[len(lines)-4:]
	}
	return strings.Join(lines, "; ")
}
