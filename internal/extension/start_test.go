package extension

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"runtime"
	"strings"
	"testing"
)

// writeStub writes an executable shell script at path.
func writeStub(t *testing.T, path, body string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("creating %s: %v", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0755); err != nil {
		t.Fatalf("writing stub: %v", err)
	}
	return path
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test drives /bin/sh stubs")
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func TestStart_MissingStartCommand(t *testing.T) {
	tests := []struct {
		name         string
		manifestJSON string
	}{
		{"no scripts", `{"name": "foo", "version": "1.2.3"}`},
		{"blank start", `{"name": "foo", "version": "1.2.3", "scripts": {"start": "   "}}`},
		{"quoted empty", `{"name": "foo", "version": "1.2.3", "scripts": {"start": "\"\""}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestManager(t, testRegistry(), &fakeInstaller{})
			dir := plantExtension(t, m.Root(), "foo", "1.2.3", tt.manifestJSON)
			marker := filepath.Join(dir, "node_modules", "foo", "args.txt")
			writeStub(t, filepath.Join(dir, "node_modules", ".bin", "fake-node"),
				`printf '%s\n' "$@" > args.txt`)

			ext := NewExtension(NewPackage("foo", "1.2.3", "foo@1.2.3*"), m.Root())
			_, err := m.Start(ext, StartOptions{})
			var cmdErr *StartCommandError
			if !errors.As(err, &cmdErr) {
				t.Fatalf("error = %v, want StartCommandError", err)
			}
			if cmdErr.ID != "foo@1.2.3" {
				t.Errorf("ID = %q, want %q", cmdErr.ID, "foo@1.2.3")
			}
			if _, err := os.Stat(marker); !os.IsNotExist(err) {
				t.Error("a process ran despite the missing start command")
			}
		})
	}
}

func TestStart_MissingManifest(t *testing.T) {
	m := newTestManager(t, testRegistry(), &fakeInstaller{})

	ext := NewExtension(NewPackage("foo", "1.2.3", "foo@1.2.3*"), m.Root())
	_, err := m.Start(ext, StartOptions{})
	var cmdErr *StartCommandError
	if !errors.As(err, &cmdErr) {
		t.Fatalf("error = %v, want StartCommandError", err)
	}
}

func TestStart_UnresolvableCommand(t *testing.T) {
	m := newTestManager(t, testRegistry(), &fakeInstaller{})
	manifestJSON := `{"name": "foo", "version": "1.2.3", "scripts": {"start": "no-such-tool-xyz"}}`
	plantExtension(t, m.Root(), "foo", "1.2.3", manifestJSON)

	ext := NewExtension(NewPackage("foo", "1.2.3", "foo@1.2.3*"), m.Root())
	_, err := m.Start(ext, StartOptions{})
	if err == nil {
		t.Fatal("Start resolved a nonexistent command")
	}
	var cmdErr *StartCommandError
	if errors.As(err, &cmdErr) {
		t.Errorf("resolution failure reported as StartCommandError: %v", err)
	}
}

func TestStart_RunsEntryScript(t *testing.T) {
	skipOnWindows(t)
	m := newTestManager(t, testRegistry(), &fakeInstaller{})

	manifestJSON := `{"name": "foo", "version": "1.2.3", "scripts": {"start": "fake-node ./lib/run.js --flag \"a b\""}}`
	dir := plantExtension(t, m.Root(), "foo", "1.2.3", manifestJSON)
	writeStub(t, filepath.Join(dir, "node_modules", ".bin", "fake-node"),
		`printf '%s\n' "$@" > args.txt`)

	ext := NewExtension(NewPackage("foo", "1.2.3", "foo@1.2.3*"), m.Root())
	cmd, err := m.Start(ext, StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if cmd.Dir != ext.ModulePath() {
		t.Errorf("working directory = %q, want %q", cmd.Dir, ext.ModulePath())
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("child failed: %v", err)
	}

	// args.txt lands in the child's working directory, which must be the
	// module path.
	got := readLines(t, filepath.Join(ext.ModulePath(), "args.txt"))
	want := []string{"./lib/run.js", "--flag", "a b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("child argv = %q, want %q", got, want)
	}
}

func TestStart_SubstitutesNodeRuntime(t *testing.T) {
	skipOnWindows(t)

	nodeStub := writeStub(t, filepath.Join(t.TempDir(), "fake-node"),
		`printf '%s\n' "$@" > args.txt`)
	m := newTestManager(t, testRegistry(), &fakeInstaller{}, WithNodePath(nodeStub))

	manifestJSON := `{"name": "foo", "version": "1.2.3", "scripts": {"start": "node server.js --port 8080"}}`
	plantExtension(t, m.Root(), "foo", "1.2.3", manifestJSON)

	ext := NewExtension(NewPackage("foo", "1.2.3", "foo@1.2.3*"), m.Root())
	cmd, err := m.Start(ext, StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if cmd.Path != nodeStub {
		t.Errorf("resolved executable = %q, want the configured node %q", cmd.Path, nodeStub)
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("child failed: %v", err)
	}

	got := readLines(t, filepath.Join(ext.ModulePath(), "args.txt"))
	want := []string{"server.js", "--port", "8080"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("child argv = %q, want %q", got, want)
	}
}

func TestStart_DebugScriptPreferred(t *testing.T) {
	skipOnWindows(t)
	m := newTestManager(t, testRegistry(), &fakeInstaller{})

	manifestJSON := `{"name": "foo", "version": "1.2.3", "scripts": {"start": "fake-node start.js", "debug": "fake-node debug.js"}}`
	dir := plantExtension(t, m.Root(), "foo", "1.2.3", manifestJSON)
	writeStub(t, filepath.Join(dir, "node_modules", ".bin", "fake-node"),
		`printf '%s\n' "$@" > args.txt`)
	ext := NewExtension(NewPackage("foo", "1.2.3", "foo@1.2.3*"), m.Root())
	argsPath := filepath.Join(ext.ModulePath(), "args.txt")

	cmd, err := m.Start(ext, StartOptions{Debug: true})
	if err != nil {
		t.Fatalf("Start(debug) failed: %v", err)
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("child failed: %v", err)
	}
	if got := readLines(t, argsPath); !reflect.DeepEqual(got, []string{"debug.js"}) {
		t.Errorf("debug argv = %q, want [debug.js]", got)
	}

	cmd, err = m.Start(ext, StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("child failed: %v", err)
	}
	if got := readLines(t, argsPath); !reflect.DeepEqual(got, []string{"start.js"}) {
		t.Errorf("argv = %q, want [start.js]", got)
	}
}

func TestStart_ModuleBinWinsOverLocationBin(t *testing.T) {
	skipOnWindows(t)
	m := newTestManager(t, testRegistry(), &fakeInstaller{})

	manifestJSON := `{"name": "foo", "version": "1.2.3", "scripts": {"start": "tool"}}`
	dir := plantExtension(t, m.Root(), "foo", "1.2.3", manifestJSON)
	ext := NewExtension(NewPackage("foo", "1.2.3", "foo@1.2.3*"), m.Root())

	writeStub(t, filepath.Join(ext.ModulePath(), "node_modules", ".bin", "tool"),
		`printf 'module' > which.txt`)
	writeStub(t, filepath.Join(dir, "node_modules", ".bin", "tool"),
		`printf 'location' > which.txt`)

	cmd, err := m.Start(ext, StartOptions{})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("child failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(ext.ModulePath(), "which.txt"))
	if err != nil {
		t.Fatalf("reading marker: %v", err)
	}
	if string(data) != "module" {
		t.Errorf("resolved the %s copy, want the module-local one", data)
	}
}

func TestStart_WiresStdio(t *testing.T) {
	skipOnWindows(t)
	m := newTestManager(t, testRegistry(), &fakeInstaller{})

	manifestJSON := `{"name": "foo", "version": "1.2.3", "scripts": {"start": "fake-node"}}`
	dir := plantExtension(t, m.Root(), "foo", "1.2.3", manifestJSON)
	writeStub(t, filepath.Join(dir, "node_modules", ".bin", "fake-node"),
		`printf 'out'; printf 'err' >&2`)

	ext := NewExtension(NewPackage("foo", "1.2.3", "foo@1.2.3*"), m.Root())
	var stdout, stderr bytes.Buffer
	cmd, err := m.Start(ext, StartOptions{Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := cmd.Wait(); err != nil {
		t.Fatalf("child failed: %v", err)
	}
	if stdout.String() != "out" || stderr.String() != "err" {
		t.Errorf("stdio = (%q, %q), want (out, err)", stdout.String(), stderr.String())
	}
}
