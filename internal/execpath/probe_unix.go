//go:build !windows

package execpath

import "os"

// probeExecutable reports whether path exists as a regular file with an
// execute bit set.
func probeExecutable(path string, _ []string) (string, bool) {
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() || info.Mode()&0o111 == 0 {
		return "", false
	}
	return path, true
}
