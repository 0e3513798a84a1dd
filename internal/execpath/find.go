package execpath

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

// FindExecutable resolves command to a fully qualified executable path.
// Absolute paths are probed directly; paths containing a separator are
// resolved against cwd; bare names are searched through the PATH variable of
// env. On Windows each candidate is additionally probed with the PATHEXT
// extensions. Surrounding quotes on command are ignored.
func FindExecutable(command, cwd string, env []string) (string, error) {
	command = TrimQuotes(command)
	if command == "" {
		return "", fmt.Errorf("resolving empty command")
	}

	if filepath.IsAbs(command) {
		if found, ok := probeExecutable(command, env); ok {
			return found, nil
		}
		return "", fmt.Errorf("executable %s not found", command)
	}

	if containsSeparator(command) {
		candidate := filepath.Join(cwd, command)
		if found, ok := probeExecutable(candidate, env); ok {
			return found, nil
		}
		return "", fmt.Errorf("executable %s not found under %s", command, cwd)
	}

	pathValue := Getenv(env, PathVarName(env))
	for _, dir := range filepath.SplitList(pathValue) {
		if dir == "" {
			dir = "."
		}
		if found, ok := probeExecutable(filepath.Join(dir, command), env); ok {
			return found, nil
		}
	}
	return "", fmt.Errorf("executable %q not found in PATH", command)
}

func containsSeparator(command string) bool {
	if strings.ContainsRune(command, '/') {
		return true
	}
	return runtime.GOOS == "windows" && strings.ContainsRune(command, '\\')
}

// defaultPathExt mirrors the cmd.exe default when PATHEXT is unset.
const defaultPathExt = ".COM;.EXE;.BAT;.CMD"

// pathExtList returns the PATHEXT extensions from env, normalized to carry
// a leading dot.
func pathExtList(env []string) []string {
	raw := Getenv(env, "PATHEXT")
	if raw == "" {
		raw = defaultPathExt
	}
	var exts []string
	for _, e := range strings.Split(raw, ";") {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		exts = append(exts, e)
	}
	return exts
}

// HasExecutableExtension reports whether path already ends in one of the
// PATHEXT executable extensions.
func HasExecutableExtension(path string, env []string) bool {
	ext := filepath.Ext(path)
	if ext == "" {
		return false
	}
	for _, e := range pathExtList(env) {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}
