//go:build windows

package execpath

import "os"

// probeExecutable checks path as given, then with each PATHEXT extension
// appended.
func probeExecutable(path string, env []string) (string, bool) {
	if isRegular(path) {
		return path, true
	}
	for _, ext := range pathExtList(env) {
		candidate := path + ext
		if isRegular(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func isRegular(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
