package updater

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/nodex-labs/nodex/internal/branding"
	"github.com/nodex-labs/nodex/internal/platform"
)

// verifyTimeout bounds the "version --json" run against the new binary.
const verifyTimeout = 5 * time.Second

// ReplaceBinary swaps the new binary over the current one: back up, move
// into place, verify. A failed verification restores the backup.
func ReplaceBinary(newPath, currentPath, expectedVersion string) error {
	if runtime.GOOS == "windows" {
		return fmt.Errorf("self-update is not supported on Windows. Please download the latest version manually from https://github.com/%s/releases", branding.GitHubRepo())
	}

	// Preserve original permissions.
	info, err := os.Stat(currentPath)
	if err != nil {
		return fmt.Errorf("stat current binary: %w", err)
	}
	origPerm := info.Mode().Perm()

	backupPath := currentPath + ".backup"
	if err := moveFile(currentPath, backupPath); err != nil {
		return fmt.Errorf("creating backup: %w", err)
	}

	if err := moveFile(newPath, currentPath); err != nil {
		RollbackBinary(backupPath, currentPath)
		return fmt.Errorf("installing new binary: %w", err)
	}
	platform.Chmod(currentPath, origPerm)

	if err := VerifyBinary(currentPath, expectedVersion); err != nil {
		RollbackBinary(backupPath, currentPath)
		return fmt.Errorf("verification failed, rolled back: %w", err)
	}

	os.Remove(backupPath)
	return nil
}

// VerifyBinary runs the binary with "version --json" and checks that it
// answers within a bounded time and reports the expected version.
func VerifyBinary(binaryPath, expectedVersion string) error {
	ctx, cancel := context.WithTimeout(context.Background(), verifyTimeout)
	defer cancel()

	output, err := exec.CommandContext(ctx, binaryPath, "version", "--json").Output()
	if ctx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("new binary timed out after %s", verifyTimeout)
	}
	if err != nil {
		return fmt.Errorf("new binary exited with error: %w", err)
	}

	var versionInfo map[string]string
	if err := json.Unmarshal(output, &versionInfo); err != nil {
		return fmt.Errorf("parsing version output: %w", err)
	}

	// Compare only when both sides parse; release tags carry a "v" prefix
	// the binary's own version does not.
	if reported := versionInfo["version"]; reported != "" && expectedVersion != "" {
		want, werr := parseTag(expectedVersion)
		got, gerr := parseTag(reported)
		if werr == nil && gerr == nil && !want.Equal(got) {
			return fmt.Errorf("new binary reports version %s, expected %s", reported, expectedVersion)
		}
	}
	return nil
}

// RollbackBinary restores the backup to the current path.
func RollbackBinary(backupPath, currentPath string) error {
	if err := moveFile(backupPath, currentPath); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

// moveFile renames src onto dst, falling back to copy-and-remove across
// filesystem boundaries.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := copyFile(src, dst); err != nil {
		return err
	}
	os.Remove(src)
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
