package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nodex-labs/nodex/internal/branding"
)

// Directory and file name constants for the workspace convention.
const (
	ExtensionsDir    = "extensions"
	CacheDir         = "cache"
	RegistryCacheDir = "registry"
	UpdateCacheFile  = "update-check.json"
	LinksFile        = "links.yaml"
	ConfigFile       = "config.yaml"
)

// Permission constants.
const (
	DirPermNormal  os.FileMode = 0755
	FilePermNormal os.FileMode = 0644
)

// HomeRoot returns the path to the workspace root directory.
// It checks the NODEX_HOME environment variable first,
// then falls back to ~/.nodex.
func HomeRoot() (string, error) {
	if v := os.Getenv(branding.EnvVar("HOME")); v != "" {
		return v, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, branding.HomeDir()), nil
}

// ExtensionsRoot returns the path to the extension installation root.
// It checks the NODEX_EXTENSIONS environment variable first,
// then falls back to ~/.nodex/extensions.
func ExtensionsRoot() (string, error) {
	if v := os.Getenv(branding.EnvVar("EXTENSIONS")); v != "" {
		return v, nil
	}
	root, err := HomeRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, ExtensionsDir), nil
}

// CacheRoot returns the path to the cache directory.
// It checks the NODEX_CACHE environment variable first,
// then falls back to ~/.nodex/cache.
func CacheRoot() (string, error) {
	if v := os.Getenv(branding.EnvVar("CACHE")); v != "" {
		return v, nil
	}
	root, err := HomeRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, CacheDir), nil
}

// RegistryCachePath returns the path to the registry metadata cache directory.
func RegistryCachePath() (string, error) {
	cache, err := CacheRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, RegistryCacheDir), nil
}

// UpdateCachePath returns the path to the cached self-update check result,
// kept in the cache tree beside the registry metadata.
func UpdateCachePath() (string, error) {
	cache, err := CacheRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(cache, UpdateCacheFile), nil
}

// LinksPath returns the path to links.yaml, the record of locally linked
// extension directories.
func LinksPath() (string, error) {
	root, err := HomeRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, LinksFile), nil
}
