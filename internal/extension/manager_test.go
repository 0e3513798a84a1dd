package extension

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nodex-labs/nodex/internal/installer"
	"github.com/nodex-labs/nodex/internal/npm"
)

// fakeRegistry resolves specs with the real parser and serves canned
// metadata keyed by package name.
type fakeRegistry struct {
	url      string
	metadata map[string]*npm.Metadata
	versions map[string][]string
}

func testRegistry() *fakeRegistry {
	return &fakeRegistry{
		metadata: map[string]*npm.Metadata{
			"foo": {Name: "foo", Version: "1.2.3", Description: "test package",
				Versions: []string{"1.0.0", "1.2.3", "1.1.0"}},
			"bar":        {Name: "bar", Version: "0.9.0"},
			"@scope/bar": {Name: "@scope/bar", Version: "2.0.0"},
			"local-tool": {Name: "local-tool", Version: "0.1.0"},
		},
		versions: map[string][]string{
			"foo": {"1.0.0", "1.2.3", "1.1.0"},
		},
	}
}

func (f *fakeRegistry) Resolve(name, versionSpec string) (npm.Spec, error) {
	return npm.ParseSpec(name, versionSpec)
}

func (f *fakeRegistry) FetchMetadata(_ context.Context, spec npm.Spec) (*npm.Metadata, error) {
	meta, ok := f.metadata[spec.Name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", npm.ErrNotFound, spec.Name)
	}
	return meta, nil
}

func (f *fakeRegistry) ListVersions(_ context.Context, name string) ([]string, error) {
	versions, ok := f.versions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", npm.ErrNotFound, name)
	}
	return versions, nil
}

func (f *fakeRegistry) RegistryURL() string {
	if f.url == "" {
		return npm.DefaultRegistryURL
	}
	return f.url
}

// fakeInstaller records launches and mimics the installed-library layout a
// real install produces.
type fakeInstaller struct {
	mu      sync.Mutex
	starts  []installRecord
	failRef string
	delay   time.Duration
}

type installRecord struct {
	dir   string
	ref   string
	force bool
}

func (f *fakeInstaller) Start(_ context.Context, targetDir, artifactRef string, force bool) (InstallerInvocation, error) {
	f.mu.Lock()
	f.starts = append(f.starts, installRecord{dir: targetDir, ref: artifactRef, force: force})
	f.mu.Unlock()
	return &fakeInvocation{tool: f, dir: targetDir, ref: artifactRef}, nil
}

func (f *fakeInstaller) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.starts)
}

func (f *fakeInstaller) record(i int) installRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.starts[i]
}

type fakeInvocation struct {
	tool *fakeInstaller
	dir  string
	ref  string
}

func (i *fakeInvocation) Wait() (*installer.Result, error) {
	if i.tool.delay > 0 {
		time.Sleep(i.tool.delay)
	}
	if i.tool.failRef != "" && i.ref == i.tool.failRef {
		return &installer.Result{Stderr: "npm ERR! boom", ExitCode: 1},
			fmt.Errorf("npm install exited with status 1: npm ERR! boom")
	}

	name, version := parseRef(i.ref)
	moduleDir := filepath.Join(i.dir, "node_modules", name)
	if err := os.MkdirAll(moduleDir, 0755); err != nil {
		return nil, err
	}
	manifestJSON := fmt.Sprintf(`{"name": %q, "version": %q, "scripts": {"start": "node index.js"}}`, name, version)
	if err := os.WriteFile(filepath.Join(moduleDir, "package.json"), []byte(manifestJSON), 0644); err != nil {
		return nil, err
	}
	return &installer.Result{ExitCode: 0}, nil
}

// parseRef splits a name@version artifact ref, dropping the registry
// wildcard suffix.
func parseRef(ref string) (string, string) {
	ref = strings.TrimSuffix(ref, "*")
	at := strings.LastIndex(ref, "@")
	if at <= 0 {
		return ref, "0.0.0"
	}
	return ref[:at], ref[at+1:]
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestManager builds a manager on a fresh temp root with fake
// collaborators and an independent gate.
func newTestManager(t *testing.T, reg RegistryClient, tool Installer, opts ...Option) *Manager {
	t.Helper()
	base := []Option{
		WithRegistry(reg),
		WithInstaller(tool),
		WithGate(semaphore.NewWeighted(1)),
		WithNodePath("node"),
		WithLogger(quietLogger()),
	}
	m, err := NewManager(filepath.Join(t.TempDir(), "exts"), append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestNewManager_CreatesRootAndLock(t *testing.T) {
	root := filepath.Join(t.TempDir(), "exts")
	m := newTestManagerAt(t, root)

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		t.Fatalf("root not created: %v", err)
	}
	if _, err := os.Stat(root + ".lock"); err != nil {
		t.Errorf("root lock file not created: %v", err)
	}
	if m.Root() != root {
		t.Errorf("Root() = %q, want %q", m.Root(), root)
	}
}

func TestNewManager_RootMustBeDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	_, err := NewManager(path,
		WithRegistry(testRegistry()), WithInstaller(&fakeInstaller{}),
		WithGate(semaphore.NewWeighted(1)), WithNodePath("node"), WithLogger(quietLogger()))
	if err == nil {
		t.Fatal("NewManager succeeded on a file root")
	}
}

func TestClose_FailsInstallsFast(t *testing.T) {
	m := newTestManager(t, testRegistry(), &fakeInstaller{})
	if err := m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	// Idempotent.
	if err := m.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	pkg := NewPackage("foo", "1.2.3", "foo@1.2.3*")
	if _, err := m.Install(context.Background(), &pkg, InstallOptions{}); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("Install after Close = %v, want ErrManagerClosed", err)
	}
	if err := m.Remove(context.Background(), NewExtension(pkg, m.Root())); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("Remove after Close = %v, want ErrManagerClosed", err)
	}
	if err := m.Reset(context.Background(), time.Second); !errors.Is(err, ErrManagerClosed) {
		t.Errorf("Reset after Close = %v, want ErrManagerClosed", err)
	}
}

func TestFindPackage_ExactVersionCarriesWildcard(t *testing.T) {
	m := newTestManager(t, testRegistry(), &fakeInstaller{})

	pkg, err := m.FindPackage(context.Background(), "foo", "1.2.3")
	if err != nil {
		t.Fatalf("FindPackage failed: %v", err)
	}
	if pkg.ID != "foo@1.2.3" {
		t.Errorf("ID = %q, want %q", pkg.ID, "foo@1.2.3")
	}
	if pkg.SourceSpec != "foo@1.2.3*" {
		t.Errorf("SourceSpec = %q, want %q (public registry pins carry the wildcard)", pkg.SourceSpec, "foo@1.2.3*")
	}
}

func TestFindPackage_CarriesAvailableVersions(t *testing.T) {
	m := newTestManager(t, testRegistry(), &fakeInstaller{})

	pkg, err := m.FindPackage(context.Background(), "foo", "1.2.3")
	if err != nil {
		t.Fatalf("FindPackage failed: %v", err)
	}
	want := []string{"1.0.0", "1.2.3", "1.1.0"}
	if !reflect.DeepEqual(pkg.AvailableVersions, want) {
		t.Errorf("AvailableVersions = %v, want %v (registry order)", pkg.AvailableVersions, want)
	}
}

func TestFindPackage_TagHasNoWildcard(t *testing.T) {
	m := newTestManager(t, testRegistry(), &fakeInstaller{})

	pkg, err := m.FindPackage(context.Background(), "foo", "latest")
	if err != nil {
		t.Fatalf("FindPackage failed: %v", err)
	}
	if pkg.SourceSpec != "foo@1.2.3" {
		t.Errorf("SourceSpec = %q, want %q", pkg.SourceSpec, "foo@1.2.3")
	}
}

func TestFindPackage_PrivateRegistryHasNoWildcard(t *testing.T) {
	reg := testRegistry()
	reg.url = "https://registry.corp.test"
	m := newTestManager(t, reg, &fakeInstaller{})

	pkg, err := m.FindPackage(context.Background(), "foo", "1.2.3")
	if err != nil {
		t.Fatalf("FindPackage failed: %v", err)
	}
	if pkg.SourceSpec != "foo@1.2.3" {
		t.Errorf("SourceSpec = %q, want %q", pkg.SourceSpec, "foo@1.2.3")
	}
}

func TestFindPackage_DirectorySpecKeepsPath(t *testing.T) {
	m := newTestManager(t, testRegistry(), &fakeInstaller{})

	pkg, err := m.FindPackage(context.Background(), "local-tool", "./fixtures/local-tool")
	if err != nil {
		t.Fatalf("FindPackage failed: %v", err)
	}
	if pkg.SourceSpec != filepath.Clean("./fixtures/local-tool") {
		t.Errorf("SourceSpec = %q, want the local path", pkg.SourceSpec)
	}
	if pkg.Version != "0.1.0" {
		t.Errorf("Version = %q, want %q", pkg.Version, "0.1.0")
	}
}

func TestFindPackage_MalformedIdentity(t *testing.T) {
	m := newTestManager(t, testRegistry(), &fakeInstaller{})

	_, err := m.FindPackage(context.Background(), "Not A Name", "1.0.0")
	var identityErr *InvalidIdentityError
	if !errors.As(err, &identityErr) {
		t.Fatalf("error = %v, want InvalidIdentityError", err)
	}
	if !errors.Is(err, npm.ErrInvalidSpec) {
		t.Errorf("error chain misses npm.ErrInvalidSpec: %v", err)
	}
}

func TestFindPackage_UnknownPackage(t *testing.T) {
	m := newTestManager(t, testRegistry(), &fakeInstaller{})

	_, err := m.FindPackage(context.Background(), "missing", "latest")
	var unresolved *UnresolvedError
	if !errors.As(err, &unresolved) {
		t.Fatalf("error = %v, want UnresolvedError", err)
	}
	if unresolved.Spec != "missing@latest" {
		t.Errorf("Spec = %q, want %q", unresolved.Spec, "missing@latest")
	}
}

func TestPackageVersions_RegistryOrder(t *testing.T) {
	m := newTestManager(t, testRegistry(), &fakeInstaller{})

	versions, err := m.PackageVersions(context.Background(), "foo")
	if err != nil {
		t.Fatalf("PackageVersions failed: %v", err)
	}
	want := []string{"1.0.0", "1.2.3", "1.1.0"}
	if !reflect.DeepEqual(versions, want) {
		t.Errorf("versions = %v, want %v (registry order, unsorted)", versions, want)
	}
}

func TestPackageVersions_UnknownPackage(t *testing.T) {
	m := newTestManager(t, testRegistry(), &fakeInstaller{})

	_, err := m.PackageVersions(context.Background(), "missing")
	var unresolved *UnresolvedError
	if !errors.As(err, &unresolved) {
		t.Fatalf("error = %v, want UnresolvedError", err)
	}
}

func TestReset_RequiresExclusiveRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "exts")
	m1 := newTestManagerAt(t, root)
	m2 := newTestManagerAt(t, root)

	// m1's shared lock blocks escalation.
	err := m2.Reset(context.Background(), 200*time.Millisecond)
	var locked *LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("Reset with busy root = %v, want LockedError", err)
	}

	if err := m1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := m2.Reset(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("Reset after Close failed: %v", err)
	}
}

func TestReset_ClearsRootAndCache(t *testing.T) {
	cache := npm.NewCache(t.TempDir(), time.Minute)
	cache.Put("foo", []byte(`{"name": "foo"}`))

	tool := &fakeInstaller{}
	m := newTestManager(t, testRegistry(), tool, WithMetadataCache(cache))

	pkg, err := m.FindPackage(context.Background(), "foo", "1.2.3")
	if err != nil {
		t.Fatalf("FindPackage failed: %v", err)
	}
	if _, err := m.Install(context.Background(), pkg, InstallOptions{}); err != nil {
		t.Fatalf("Install failed: %v", err)
	}

	if err := m.Reset(context.Background(), 2*time.Second); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	entries, err := os.ReadDir(m.Root())
	if err != nil {
		t.Fatalf("root missing after Reset: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("root not empty after Reset: %d entries", len(entries))
	}
	if _, ok := cache.Get("foo"); ok {
		t.Error("metadata cache survived Reset")
	}

	// The manager stays usable.
	if _, err := m.Install(context.Background(), pkg, InstallOptions{}); err != nil {
		t.Fatalf("Install after Reset failed: %v", err)
	}
	if tool.count() != 2 {
		t.Errorf("installer launches = %d, want 2", tool.count())
	}
}

// newTestManagerAt is newTestManager with a caller-chosen root, for tests
// exercising two managers over the same root.
func newTestManagerAt(t *testing.T, root string) *Manager {
	t.Helper()
	m, err := NewManager(root,
		WithRegistry(testRegistry()),
		WithInstaller(&fakeInstaller{}),
		WithGate(semaphore.NewWeighted(1)),
		WithNodePath("node"),
		WithLogger(quietLogger()))
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}
