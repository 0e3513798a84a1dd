package extension

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nodex-labs/nodex/internal/manifest"
)

// Package is the immutable identity of a resolved-but-not-yet-installed
// package.
type Package struct {
	// ID is the registry identity, name@version.
	ID string
	// Name is the package name, including any scope.
	Name string
	// Version is the concrete resolved version.
	Version string
	// SourceSpec is the exact specifier the installer needs to re-fetch
	// this artifact.
	SourceSpec string
	// Description is the manifest description, when resolution carried one.
	Description string
	// Engines holds the declared runtime requirements, when present.
	Engines map[string]string
	// AvailableVersions lists every published version of the package in
	// registry order, when resolution went through a registry.
	AvailableVersions []string
}

// NewPackage builds a package identity from its resolved parts.
func NewPackage(name, version, sourceSpec string) Package {
	return Package{
		ID:         name + "@" + version,
		Name:       name,
		Version:    version,
		SourceSpec: sourceSpec,
	}
}

// Kind discriminates how an extension's folder relates to the manager.
type Kind int

const (
	// KindInstalled marks an extension living under the manager's root in
	// the derived per-version folder.
	KindInstalled Kind = iota
	// KindLocal marks a pre-existing folder the manager does not own.
	// Local extensions cannot be removed through the manager.
	KindLocal
)

func (k Kind) String() string {
	if k == KindLocal {
		return "local"
	}
	return "installed"
}

// Extension pairs a Package with the folder it is installed in. All path
// properties are derived, never stored: an installed extension's location
// follows purely from the root and the package ID.
type Extension struct {
	Package
	Kind Kind

	// root is the installation root for installed extensions; localPath is
	// the fixed folder of a local one.
	root      string
	localPath string
}

// NewExtension wraps an installed package under the given root.
func NewExtension(pkg Package, root string) *Extension {
	return &Extension{Package: pkg, Kind: KindInstalled, root: root}
}

// NewLocalExtension wraps a package living in a fixed folder outside any
// installation root.
func NewLocalExtension(pkg Package, path string) *Extension {
	return &Extension{Package: pkg, Kind: KindLocal, localPath: filepath.Clean(path)}
}

// DirName returns the folder name the extension occupies under its root:
// the package ID with slashes flattened to underscores.
func (e *Extension) DirName() string {
	return strings.ReplaceAll(e.Package.ID, "/", "_")
}

// Location returns the extension's top-level folder.
func (e *Extension) Location() string {
	if e.Kind == KindLocal {
		return e.localPath
	}
	return filepath.Join(e.root, e.DirName())
}

// ModulePath returns the folder holding the installed package itself,
// nested under the installed-library layout.
func (e *Extension) ModulePath() string {
	if e.Kind == KindLocal {
		return e.localPath
	}
	return filepath.Join(e.Location(), "node_modules", e.Package.Name)
}

// ManifestPath returns the path of the installed package manifest.
func (e *Extension) ManifestPath() string {
	return filepath.Join(e.ModulePath(), "package.json")
}

// ConfigurationPath returns the first case-insensitive readme.md directly
// under the module path, or "" when there is none.
func (e *Extension) ConfigurationPath() string {
	entries, err := os.ReadDir(e.ModulePath())
	if err != nil {
		return ""
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(entry.Name(), "readme.md") {
			return filepath.Join(e.ModulePath(), entry.Name())
		}
	}
	return ""
}

// Definition parses the installed package manifest. Each call re-reads the
// file; nothing is cached.
func (e *Extension) Definition() (*manifest.PackageManifest, error) {
	return manifest.Load(e.ManifestPath())
}
