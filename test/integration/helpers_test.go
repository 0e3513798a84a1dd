//go:build integration

package integration_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"golang.org/x/sync/semaphore"

	"github.com/nodex-labs/nodex/internal/extension"
	"github.com/nodex-labs/nodex/internal/installer"
	"github.com/nodex-labs/nodex/internal/npm"
)

// testEnv holds the isolated workspace directories for one test.
type testEnv struct {
	Home       string // NODEX_HOME: links.yaml and config live here
	Extensions string // NODEX_EXTENSIONS: installation root
	Cache      string // NODEX_CACHE: registry metadata cache
}

// setupTestEnv creates isolated temp directories and points the workspace
// environment variables at them so nothing touches the real ~/.nodex.
func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		Home:       t.TempDir(),
		Extensions: t.TempDir(),
		Cache:      t.TempDir(),
	}
	t.Setenv("NODEX_HOME", env.Home)
	t.Setenv("NODEX_EXTENSIONS", env.Extensions)
	t.Setenv("NODEX_CACHE", env.Cache)
	return env
}

// packumentJSON builds a minimal registry document. The latest dist-tag
// points at latest; versions appear in the given order.
func packumentJSON(name, latest string, versions ...string) string {
	var entries []string
	for _, v := range versions {
		entries = append(entries, fmt.Sprintf(
			`%q: {"name": %q, "version": %q, "description": "integration fixture"}`,
			v, name, v))
	}
	return fmt.Sprintf(`{"name": %q, "dist-tags": {"latest": %q}, "versions": {%s}}`,
		name, latest, strings.Join(entries, ", "))
}

// newRegistryClient serves the given packuments from a local HTTP server and
// returns a client pointed at it.
func newRegistryClient(t *testing.T, docs map[string]string) *npm.Client {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), "/"))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		doc, ok := docs[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, doc)
	}))
	t.Cleanup(srv.Close)
	return npm.NewClient(npm.WithRegistryURL(srv.URL))
}

// stubInstaller mimics the directory layout a real npm install produces,
// without shelling out. Refs are recorded so tests can count invocations.
type stubInstaller struct {
	mu     sync.Mutex
	starts []string
}

func (s *stubInstaller) Start(_ context.Context, targetDir, artifactRef string, _ bool) (extension.InstallerInvocation, error) {
	s.mu.Lock()
	s.starts = append(s.starts, artifactRef)
	s.mu.Unlock()
	return &stubInvocation{dir: targetDir, ref: artifactRef}, nil
}

func (s *stubInstaller) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.starts)
}

type stubInvocation struct {
	dir string
	ref string
}

// Wait materializes node_modules/<name>/package.json under the target, the
// way `npm install <ref> --prefix <target>` would. A trailing wildcard on
// the ref (public-registry pin quirk) is dropped before splitting.
func (i *stubInvocation) Wait() (*installer.Result, error) {
	ref := strings.TrimSuffix(i.ref, "*")
	at := strings.LastIndex(ref, "@")
	if at <= 0 {
		return &installer.Result{Stderr: "bad ref", ExitCode: 1},
			fmt.Errorf("stub installer cannot parse ref %q", i.ref)
	}
	name, version := ref[:at], ref[at+1:]

	moduleDir := filepath.Join(i.dir, "node_modules", name)
	if err := os.MkdirAll(moduleDir, 0755); err != nil {
		return nil, err
	}
	manifest := fmt.Sprintf(
		`{"name": %q, "version": %q, "scripts": {"start": "echo started %s", "debug": "echo debug %s"}}`,
		name, version, name, name)
	if err := os.WriteFile(filepath.Join(moduleDir, "package.json"), []byte(manifest), 0644); err != nil {
		return nil, err
	}
	return &installer.Result{ExitCode: 0}, nil
}

// startManager builds a manager wired to the stub installer and a private
// gate so tests never serialize on each other.
func startManager(t *testing.T, env *testEnv, client *npm.Client, inst extension.Installer) *extension.Manager {
	t.Helper()

	m, err := extension.NewManager(env.Extensions,
		extension.WithRegistry(client),
		extension.WithInstaller(inst),
		extension.WithGate(semaphore.NewWeighted(1)),
		extension.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

// writeExtensionDir creates a linkable extension directory with a runnable
// start script.
func writeExtensionDir(t *testing.T, parent, name, version string) string {
	t.Helper()

	dir := filepath.Join(parent, strings.ReplaceAll(name, "/", "_"))
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("creating %s: %v", dir, err)
	}
	manifest := fmt.Sprintf(
		`{"name": %q, "version": %q, "description": "linked fixture", "scripts": {"start": "echo started %s"}}`,
		name, version, name)
	if err := os.WriteFile(filepath.Join(dir, "package.json"), []byte(manifest), 0644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return dir
}

// assertDirExists fails the test if the directory does not exist.
func assertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Errorf("expected directory to exist: %s (error: %v)", path, err)
		return
	}
	if !info.IsDir() {
		t.Errorf("expected %s to be a directory", path)
	}
}

// assertFileExists fails the test if the file does not exist.
func assertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected file to exist: %s (error: %v)", path, err)
	}
}

// assertNotExists fails the test if the path still exists.
func assertNotExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); err == nil {
		t.Errorf("expected path NOT to exist: %s", path)
	}
}

// assertContains fails if s does not contain substr.
func assertContains(t *testing.T, s, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("output does not contain %q.\nOutput:\n%s", substr, s)
	}
}
