package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nodex-labs/nodex/internal/branding"
)

// CheckWorkspace validates the workspace directory structure.
// When fix is true, it attempts to repair issues.
func CheckWorkspace(w io.Writer, fix bool) error {
	root, err := HomeRoot()
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "Workspace check:")

	// Check root exists.
	if _, statErr := os.Stat(root); os.IsNotExist(statErr) {
		fmt.Fprintf(w, "  [MISS] %s does not exist\n", root)
		if fix {
			fmt.Fprintln(w, "  [FIX ] Initializing workspace...")
			if initErr := InitGlobal(w); initErr != nil {
				return fmt.Errorf("auto-fix init: %w", initErr)
			}
		} else {
			fmt.Fprintf(w, "         Run '%s init' to create\n", branding.CLIName())
		}
		return nil
	}
	fmt.Fprintf(w, "  [ OK ] %s exists\n", root)

	// Check extensions/ root.
	extRoot, err := ExtensionsRoot()
	if err != nil {
		return err
	}
	checkDirExists(w, extRoot, fix)
	checkWritable(w, extRoot)

	// Check cache/registry/.
	regCache, err := RegistryCachePath()
	if err != nil {
		return err
	}
	checkDirExists(w, regCache, fix)

	// Report stale lock files under the extensions root.
	reportStaleLocks(w, extRoot)

	return nil
}

func checkDirExists(w io.Writer, path string, fix bool) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		fmt.Fprintf(w, "  [MISS] %s does not exist\n", path)
		if fix {
			if mkErr := os.MkdirAll(path, DirPermNormal); mkErr != nil {
				fmt.Fprintf(w, "  [FAIL] Could not create %s: %v\n", path, mkErr)
				return
			}
			fmt.Fprintf(w, "  [FIX ] Created %s\n", path)
		}
		return
	}
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] %s: %v\n", path, err)
		return
	}
	if !info.IsDir() {
		fmt.Fprintf(w, "  [WARN] %s exists but is not a directory\n", path)
		return
	}
	fmt.Fprintf(w, "  [ OK ] %s exists\n", path)
}

func checkWritable(w io.Writer, dir string) {
	probe := filepath.Join(dir, ".doctor-probe")
	if err := os.WriteFile(probe, nil, FilePermNormal); err != nil {
		fmt.Fprintf(w, "  [WARN] %s is not writable: %v\n", dir, err)
		return
	}
	os.Remove(probe)
	fmt.Fprintf(w, "  [ OK ] %s is writable\n", dir)
}

// reportStaleLocks lists .lock files left behind under the extensions root.
// Lock files are advisory; a leftover file is harmless but worth surfacing.
func reportStaleLocks(w io.Writer, extRoot string) {
	entries, err := os.ReadDir(extRoot)
	if err != nil {
		return
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".lock") {
			continue
		}
		fmt.Fprintf(w, "  [INFO] stale lock file %s\n", filepath.Join(extRoot, e.Name()))
	}
}
