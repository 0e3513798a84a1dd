package extension

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/nodex-labs/nodex/internal/manifest"
)

// dirNamePattern gates which root subdirectories are considered installed
// extensions: name@version, with scoped packages flattened to @org_name@version.
var dirNamePattern = regexp.MustCompile(`^(@[^@/]+_)?[^@/]+@[^@/]+$`)

// InstalledExtensions lists the extensions installed under the root, in
// filesystem enumeration order. Directories that do not match the naming
// pattern or whose manifest cannot be loaded are silently skipped; a
// directory whose derived location disagrees with its actual path is
// logged and excluded. Enumeration takes no locks, so results can race
// with a concurrent install or remove.
func (m *Manager) InstalledExtensions() ([]*Extension, error) {
	entries, err := os.ReadDir(m.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var exts []*Extension
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !dirNamePattern.MatchString(name) {
			continue
		}
		ext, ok := m.loadInstalled(name)
		if !ok {
			continue
		}
		exts = append(exts, ext)
	}
	return exts, nil
}

// InstalledExtension finds the first installed extension named name whose
// version satisfies versionRange. When versionRange is not a valid range it
// is first resolved through the registry to discover the concrete version
// meant, and that version is used as the range. Returns (nil, nil) when
// nothing matches.
func (m *Manager) InstalledExtension(ctx context.Context, name, versionRange string) (*Extension, error) {
	rng := versionRange
	if _, err := semver.NewConstraint(rng); err != nil {
		pkg, ferr := m.FindPackage(ctx, name, versionRange)
		if ferr != nil {
			return nil, ferr
		}
		rng = pkg.Version
	}
	constraint, err := semver.NewConstraint(rng)
	if err != nil {
		return nil, &InvalidIdentityError{Name: name, Version: versionRange, Err: err}
	}

	exts, err := m.InstalledExtensions()
	if err != nil {
		return nil, err
	}
	for _, ext := range exts {
		if ext.Package.Name != name {
			continue
		}
		v, err := semver.NewVersion(ext.Package.Version)
		if err != nil {
			continue
		}
		if constraint.Check(v) {
			return ext, nil
		}
	}
	return nil, nil
}

// loadInstalled rebuilds an Extension from a root subdirectory. The folder
// name alone is ambiguous once slashes are flattened, so the installed
// manifest names the package and the derived location is byte-compared
// against the actual path.
func (m *Manager) loadInstalled(dirName string) (*Extension, bool) {
	name, _, ok := splitDirName(dirName)
	if !ok {
		return nil, false
	}

	manifestPath := filepath.Join(m.root, dirName, "node_modules", name, "package.json")
	mf, err := manifest.Load(manifestPath)
	if err != nil {
		// Partially installed or corrupt; not worth failing enumeration.
		m.logger.Debug("skipping unreadable extension", "dir", dirName, "error", err)
		return nil, false
	}

	ext := NewExtension(NewPackage(mf.Name, mf.Version, mf.ID()), m.root)
	actual := filepath.Join(m.root, dirName)
	if ext.Location() != actual {
		m.logger.Warn("extension folder does not match its manifest",
			"dir", actual, "derived", ext.Location())
		return nil, false
	}
	return ext, true
}

// splitDirName recovers the package name and version from an extension
// folder name. For scoped folders the first underscore is the flattened
// scope separator.
func splitDirName(dir string) (name, version string, ok bool) {
	at := strings.LastIndex(dir, "@")
	if at <= 0 {
		return "", "", false
	}
	name, version = dir[:at], dir[at+1:]
	if version == "" {
		return "", "", false
	}
	if strings.HasPrefix(name, "@") {
		name = strings.Replace(name, "_", "/", 1)
	}
	return name, version, true
}
