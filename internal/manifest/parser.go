package manifest

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads and parses a package.json file. Every call re-reads the file;
// callers that need the manifest repeatedly decide their own caching.
func Load(path string) (*PackageManifest, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data, path)
}

// Parse unmarshals package.json bytes. The path is used for error context
// only.
func Parse(data []byte, path string) (*PackageManifest, error) {
	var m PackageManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if m.Name == "" {
		return nil, fmt.Errorf("manifest %s missing required 'name' field", path)
	}
	if m.Version == "" {
		return nil, fmt.Errorf("manifest %s missing required 'version' field", path)
	}
	return &m, nil
}

// readFile reads the contents of a file at the given path.
func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file %s: %w", path, err)
	}
	return data, nil
}
