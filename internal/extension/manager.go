package extension

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/nodex-labs/nodex/internal/flock"
	"github.com/nodex-labs/nodex/internal/installer"
	"github.com/nodex-labs/nodex/internal/npm"
)

const (
	// DefaultInstallWait bounds lock acquisition during installs and resets.
	DefaultInstallWait = 5 * time.Minute

	// rootLockWait bounds the shared root lock taken at construction. The
	// shared tier only contends with a running reset, so waits are short.
	rootLockWait = 30 * time.Second
)

// RegistryClient resolves specifiers and fetches package metadata.
type RegistryClient interface {
	Resolve(name, versionSpec string) (npm.Spec, error)
	FetchMetadata(ctx context.Context, spec npm.Spec) (*npm.Metadata, error)
	ListVersions(ctx context.Context, name string) ([]string, error)
	RegistryURL() string
}

// InstallerInvocation is a launched installer subprocess whose completion
// can be awaited.
type InstallerInvocation interface {
	Wait() (*installer.Result, error)
}

// Installer launches the package-installer tool against a target directory.
type Installer interface {
	Start(ctx context.Context, targetDir, artifactRef string, force bool) (InstallerInvocation, error)
}

// npmInstaller adapts installer.Tool to the Installer port.
type npmInstaller struct {
	tool *installer.Tool
}

func (n npmInstaller) Start(ctx context.Context, targetDir, artifactRef string, force bool) (InstallerInvocation, error) {
	return n.tool.Start(ctx, targetDir, artifactRef, force)
}

// defaultGate serializes installer launches across every manager in the
// process that does not inject its own gate. The installer tool's launch
// step is not safe to interleave in-process.
var defaultGate = semaphore.NewWeighted(1)

// Manager owns an installation root: it resolves packages, installs them
// into per-version folders under the root, enumerates and removes installed
// extensions, and launches their start scripts. A shared cross-process lock
// on the root is held from construction until Close.
type Manager struct {
	root     string
	registry RegistryClient
	tool     Installer
	gate     *semaphore.Weighted
	nodePath string
	logger   *slog.Logger
	cache    *npm.Cache

	mu       sync.Mutex
	rootLock *flock.Lock
	closed   bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithRegistry sets the registry client used for resolution.
func WithRegistry(client RegistryClient) Option {
	return func(m *Manager) {
		m.registry = client
	}
}

// WithInstaller sets the installer launched for package installs.
func WithInstaller(tool Installer) Option {
	return func(m *Manager) {
		m.tool = tool
	}
}

// WithNpmTool wires a concrete npm tool as the installer.
func WithNpmTool(tool *installer.Tool) Option {
	return func(m *Manager) {
		m.tool = npmInstaller{tool: tool}
	}
}

// WithGate replaces the process-wide installer gate. Managers sharing a gate
// serialize their installer launches; managers with independent gates do not.
func WithGate(gate *semaphore.Weighted) Option {
	return func(m *Manager) {
		m.gate = gate
	}
}

// WithNodePath sets the node executable substituted for "node" in start
// scripts, instead of resolving one from PATH at construction.
func WithNodePath(path string) Option {
	return func(m *Manager) {
		m.nodePath = path
	}
}

// WithLogger sets the diagnostic logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetadataCache attaches the registry metadata cache so Reset can clear
// it along with the root.
func WithMetadataCache(cache *npm.Cache) Option {
	return func(m *Manager) {
		m.cache = cache
	}
}

// NewManager ensures root exists as a directory, acquires a shared lock on
// it, and returns a ready manager. Collaborators not supplied via options
// are built with their defaults; the node executable is resolved once here,
// not lazily at start time.
func NewManager(root string, opts ...Option) (*Manager, error) {
	m := &Manager{
		root:   filepath.Clean(root),
		gate:   defaultGate,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.registry == nil {
		m.registry = npm.NewClient()
	}
	if m.tool == nil {
		tool, err := installer.NewTool()
		if err != nil {
			return nil, fmt.Errorf("resolving installer tool: %w", err)
		}
		m.tool = npmInstaller{tool: tool}
	}
	if m.nodePath == "" {
		// Best effort: start scripts that do not name "node" never need it.
		if path, err := exec.LookPath("node"); err == nil {
			m.nodePath = path
		}
	}

	info, err := os.Stat(m.root)
	switch {
	case os.IsNotExist(err):
		if err := os.MkdirAll(m.root, 0755); err != nil {
			return nil, fmt.Errorf("creating extension root: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("checking extension root: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("extension root %s is not a directory", m.root)
	}

	lock, err := flock.Acquire(context.Background(), m.rootLockPath(), flock.Shared, rootLockWait)
	if err != nil {
		return nil, &LockedError{Path: m.root, Err: err}
	}
	m.rootLock = lock

	return m, nil
}

// Root returns the installation root directory.
func (m *Manager) Root() string {
	return m.root
}

// NodePath returns the node executable substituted into start scripts.
func (m *Manager) NodePath() string {
	return m.nodePath
}

// rootLockPath is the root lock file, kept beside the root rather than
// inside it so Reset can delete the root while holding the lock.
func (m *Manager) rootLockPath() string {
	return filepath.Join(filepath.Dir(m.root), filepath.Base(m.root)+".lock")
}

// locationLockPath is the per-target lock file for an install folder. Lock
// files stay in place after removal; Reset clears them with the root.
func locationLockPath(location string) string {
	return location + ".lock"
}

// Close releases the shared root lock. Install, Remove, and Reset fail
// fast afterwards. Close is idempotent.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	if m.rootLock != nil {
		return m.rootLock.Release()
	}
	return nil
}

// ensureOpen fails fast once the manager has been closed.
func (m *Manager) ensureOpen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	return nil
}

// ensureRoot recreates the root directory if it vanished out from under a
// running manager.
func (m *Manager) ensureRoot() error {
	_, err := os.Stat(m.root)
	if os.IsNotExist(err) {
		return os.MkdirAll(m.root, 0755)
	}
	return err
}

// Reset escalates the root lock to exclusive, deletes and recreates the
// root, and clears the metadata cache. A busy root (any other process
// holding its shared lock) fails with LockedError.
func (m *Manager) Reset(ctx context.Context, maxWait time.Duration) error {
	if err := m.ensureOpen(); err != nil {
		return err
	}
	if maxWait <= 0 {
		maxWait = DefaultInstallWait
	}

	if err := m.rootLock.Upgrade(ctx, maxWait); err != nil {
		return &LockedError{Path: m.root, Err: err}
	}
	defer func() {
		if err := m.rootLock.Downgrade(); err != nil {
			m.logger.Warn("downgrading root lock", "path", m.root, "error", err)
		}
	}()

	if err := os.RemoveAll(m.root); err != nil {
		return fmt.Errorf("clearing extension root: %w", err)
	}
	if err := os.MkdirAll(m.root, 0755); err != nil {
		return fmt.Errorf("recreating extension root: %w", err)
	}
	if m.cache != nil {
		if err := m.cache.Clear(); err != nil {
			m.logger.Warn("clearing metadata cache", "error", err)
		}
	}
	return nil
}

// FindPackage resolves a name+version request into a concrete package.
// Malformed input fails with InvalidIdentityError; resolution and metadata
// failures fail with UnresolvedError.
func (m *Manager) FindPackage(ctx context.Context, name, versionSpec string) (*Package, error) {
	spec, err := m.registry.Resolve(name, versionSpec)
	if err != nil {
		return nil, &InvalidIdentityError{Name: name, Version: versionSpec, Err: err}
	}

	meta, err := m.registry.FetchMetadata(ctx, spec)
	if err != nil {
		return nil, &UnresolvedError{Spec: spec.String(), Err: err}
	}

	pkg := NewPackage(meta.Name, meta.Version, sourceSpec(spec, meta, m.registry.RegistryURL()))
	pkg.Description = meta.Description
	pkg.Engines = meta.Engines
	pkg.AvailableVersions = meta.Versions
	return &pkg, nil
}

// PackageVersions returns every published version of name in the order the
// registry reports them. No semantic-version filtering is applied.
func (m *Manager) PackageVersions(ctx context.Context, name string) ([]string, error) {
	versions, err := m.registry.ListVersions(ctx, name)
	if err != nil {
		if !npm.ValidName(name) {
			return nil, &InvalidIdentityError{Name: name, Version: "", Err: err}
		}
		return nil, &UnresolvedError{Spec: name, Err: err}
	}
	return versions, nil
}

// sourceSpec is the exact string the installer needs to re-fetch a resolved
// artifact. Exact-version resolutions against the public registry carry a
// trailing wildcard to work around a registry quirk with pinned versions.
func sourceSpec(spec npm.Spec, meta *npm.Metadata, registryURL string) string {
	switch spec.Type {
	case npm.SpecDirectory, npm.SpecTarball:
		return spec.Value
	}
	ref := meta.Name + "@" + meta.Version
	if spec.Type == npm.SpecVersion && npm.IsDefaultRegistry(registryURL) {
		ref += "*"
	}
	return ref
}
