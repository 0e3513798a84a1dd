package updater

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// DefaultCacheMaxAge bounds how long a cached check result is trusted before
// the banner triggers a background refresh.
const DefaultCacheMaxAge = 24 * time.Hour

// VersionCache is the on-disk record of the last release check. It lives in
// the workspace cache tree next to the registry metadata cache; the caller
// supplies the path.
type VersionCache struct {
	LatestVersion   string    `json:"latest_version"`
	CurrentVersion  string    `json:"current_version"`
	CheckedAt       time.Time `json:"checked_at"`
	UpdateAvailable bool      `json:"update_available"`
}

// LoadCache reads the cached check result from path. A missing file is not
// an error; first runs start without a cache.
func LoadCache(path string) (*VersionCache, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading update cache: %w", err)
	}

	var cache VersionCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parsing update cache: %w", err)
	}
	return &cache, nil
}

// SaveCache writes the check result to path, creating parent directories as
// needed.
func SaveCache(path string, cache *VersionCache) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling update cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing update cache: %w", err)
	}
	return nil
}

// IsCacheStale reports whether cache is nil or older than maxAge.
func IsCacheStale(cache *VersionCache, maxAge time.Duration) bool {
	if cache == nil {
		return true
	}
	return time.Since(cache.CheckedAt) > maxAge
}
