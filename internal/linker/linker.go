package linker

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/nodex-labs/nodex/internal/extension"
	"github.com/nodex-labs/nodex/internal/manifest"
)

// FileName is the registry file kept in the workspace home.
const FileName = "links.yaml"

// LinkFile represents the links.yaml structure. Each entry is the absolute
// path of a local extension directory.
type LinkFile struct {
	Links []string `yaml:"links"`
}

// Load reads and parses links.yaml from the given path. A missing file is
// treated as an empty registry so linking works before the workspace has
// been initialized.
func Load(path string) (*LinkFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LinkFile{}, nil
		}
		return nil, fmt.Errorf("reading link registry: %w", err)
	}

	var file LinkFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing link registry: %w", err)
	}

	return &file, nil
}

// Save writes the link registry to the given path.
func Save(path string, file *LinkFile) error {
	data, err := yaml.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshaling link registry: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating registry directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing link registry: %w", err)
	}

	return nil
}

// contains checks if a string slice contains a value.
func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}

// remove returns a new slice with the given value removed.
func remove(slice []string, val string) []string {
	result := make([]string, 0, len(slice))
	for _, s := range slice {
		if s != val {
			result = append(result, s)
		}
	}
	return result
}

// normalize resolves dir to a cleaned absolute path so that links recorded
// from different working directories compare equal.
func normalize(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", dir, err)
	}
	return filepath.Clean(abs), nil
}

// Add records dir as a linked local extension. The directory must exist and
// contain a parseable package.json with a name and version. The resolved
// extension is returned so callers can report what got linked.
func Add(registryPath, dir string) (*extension.Extension, error) {
	target, err := normalize(dir)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("inspecting %s: %w", target, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", target)
	}

	def, err := manifest.Load(filepath.Join(target, "package.json"))
	if err != nil {
		return nil, fmt.Errorf("loading extension manifest: %w", err)
	}

	file, err := Load(registryPath)
	if err != nil {
		return nil, err
	}

	if contains(file.Links, target) {
		return nil, fmt.Errorf("%s is already linked", target)
	}

	file.Links = append(file.Links, target)
	if err := Save(registryPath, file); err != nil {
		return nil, err
	}

	pkg := extension.NewPackage(def.Name, def.Version, target)
	return extension.NewLocalExtension(pkg, target), nil
}

// Remove deletes dir from the link registry. The directory itself is left
// untouched. Removing a path that is not linked is an error.
func Remove(registryPath, dir string) error {
	target, err := normalize(dir)
	if err != nil {
		return err
	}

	file, err := Load(registryPath)
	if err != nil {
		return err
	}

	if !contains(file.Links, target) {
		return fmt.Errorf("%s is not linked", target)
	}

	file.Links = remove(file.Links, target)
	return Save(registryPath, file)
}

// Extensions resolves every registered link to a local extension. Entries
// whose directory or manifest can no longer be read are returned separately
// as broken paths rather than failing the whole listing.
func Extensions(registryPath string) ([]*extension.Extension, []string, error) {
	file, err := Load(registryPath)
	if err != nil {
		return nil, nil, err
	}

	var exts []*extension.Extension
	var broken []string
	for _, target := range file.Links {
		def, err := manifest.Load(filepath.Join(target, "package.json"))
		if err != nil {
			broken = append(broken, target)
			continue
		}
		pkg := extension.NewPackage(def.Name, def.Version, target)
		exts = append(exts, extension.NewLocalExtension(pkg, target))
	}

	return exts, broken, nil
}
