package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// InitGlobal creates the workspace directory structure.
// It prints progress messages to w. Existing items are skipped with a message.
func InitGlobal(w io.Writer) error {
	root, err := HomeRoot()
	if err != nil {
		return err
	}

	// Create the workspace root.
	if err := ensureDir(w, root, DirPermNormal); err != nil {
		return err
	}

	// Create extensions/ installation root.
	extRoot, err := ExtensionsRoot()
	if err != nil {
		return err
	}
	if err := ensureDir(w, extRoot, DirPermNormal); err != nil {
		return err
	}

	// Create cache/registry/ for registry metadata.
	regCache, err := RegistryCachePath()
	if err != nil {
		return err
	}
	if err := ensureDir(w, regCache, DirPermNormal); err != nil {
		return err
	}

	// Create an empty links.yaml.
	linksPath, err := LinksPath()
	if err != nil {
		return err
	}
	if err := ensureFile(w, linksPath, "links: []\n", FilePermNormal); err != nil {
		return err
	}

	return nil
}

// ensureDir creates a directory if it doesn't exist.
func ensureDir(w io.Writer, path string, perm os.FileMode) error {
	if info, err := os.Stat(path); err == nil {
		if info.IsDir() {
			fmt.Fprintf(w, "  [SKIP] %s already exists\n", path)
			return nil
		}
		return fmt.Errorf("%s exists but is not a directory", path)
	}

	if err := os.MkdirAll(path, perm); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	fmt.Fprintf(w, "  [ OK ] Created %s\n", path)
	return nil
}

// ensureFile creates a file with content if it doesn't exist.
func ensureFile(w io.Writer, path, content string, perm os.FileMode) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  [SKIP] %s already exists\n", path)
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), DirPermNormal); err != nil {
		return fmt.Errorf("creating parent of %s: %w", path, err)
	}
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		return fmt.Errorf("creating file %s: %w", path, err)
	}
	fmt.Fprintf(w, "  [ OK ] Created %s\n", path)
	return nil
}
