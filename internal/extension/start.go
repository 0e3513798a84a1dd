package extension

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/nodex-labs/nodex/internal/execpath"
)

// StartOptions adjust how an extension process is launched.
type StartOptions struct {
	// Debug prefers the manifest's debug script over start when declared.
	Debug bool
	// Stdin, Stdout, and Stderr wire the child's stdio. Nil streams read
	// EOF and discard output.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// Start launches the extension's declared entry script and returns the live
// process. The caller owns the process from there: termination, signals,
// and stdio consumption. The child runs with the extension's module path as
// working directory and the extension .bin folders prepended to its PATH.
func (m *Manager) Start(ext *Extension, opts StartOptions) (*exec.Cmd, error) {
	def, err := ext.Definition()
	if err != nil {
		return nil, &StartCommandError{ID: ext.Package.ID, Err: err}
	}
	script, ok := def.EntryCommand(opts.Debug)
	if !ok {
		return nil, &StartCommandError{ID: ext.Package.ID}
	}
	tokens := execpath.Tokenize(script)
	if len(tokens) == 0 || tokens[0] == "" {
		return nil, &StartCommandError{ID: ext.Package.ID}
	}

	modulePath := ext.ModulePath()
	env := execpath.PrependPath(os.Environ(),
		filepath.Join(modulePath, "node_modules", ".bin"),
		filepath.Join(ext.Location(), "node_modules", ".bin"),
	)

	// The generic "node" runs through the executable resolved at manager
	// construction, quoted when its path carries a space.
	if execpath.TrimQuotes(tokens[0]) == "node" && m.nodePath != "" {
		tokens[0] = execpath.QuoteIfNeeded(m.nodePath)
	}

	exe, err := execpath.FindExecutable(tokens[0], modulePath, env)
	if err != nil {
		return nil, fmt.Errorf("resolving start command for %s: %w", ext.Package.ID, err)
	}
	args := tokens[1:]

	m.logger.Debug("starting extension",
		"id", ext.Package.ID, "command", commandLine(exe, args), "dir", modulePath)

	return spawn(exe, args, modulePath, env, opts)
}

// spawn launches the resolved executable. On Windows, an executable path
// that contains a space and lacks a recognized binary extension is launched
// by bare name with its directory temporarily on the process PATH.
func spawn(exe string, args []string, dir string, env []string, opts StartOptions) (*exec.Cmd, error) {
	if runtime.GOOS == "windows" && strings.Contains(exe, " ") && !execpath.HasExecutableExtension(exe, env) {
		return spawnViaPath(exe, args, dir, env, opts)
	}

	cmd := exec.Command(exe, args...)
	configureCmd(cmd, dir, env, opts)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", exe, err)
	}
	return cmd, nil
}

// spawnViaPath prepends the executable's directory to the process PATH
// variable for the duration of the launch. The prior value is restored
// whether or not the launch succeeds.
func spawnViaPath(exe string, args []string, dir string, env []string, opts StartOptions) (*exec.Cmd, error) {
	guard, err := execpath.PrependProcessPath(filepath.Dir(exe))
	if err != nil {
		return nil, err
	}
	defer guard.Restore()

	cmd := exec.Command(filepath.Base(exe), args...)
	configureCmd(cmd, dir, env, opts)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", exe, err)
	}
	return cmd, nil
}

func configureCmd(cmd *exec.Cmd, dir string, env []string, opts StartOptions) {
	cmd.Dir = dir
	cmd.Env = env
	cmd.Stdin = opts.Stdin
	cmd.Stdout = opts.Stdout
	cmd.Stderr = opts.Stderr
}

// commandLine renders a resolved command for diagnostics, re-quoting every
// token that needs it.
func commandLine(exe string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, execpath.QuoteIfNeeded(exe))
	for _, arg := range args {
		parts = append(parts, execpath.QuoteIfNeeded(arg))
	}
	return strings.Join(parts, " ")
}
