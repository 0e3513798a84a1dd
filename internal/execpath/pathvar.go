package execpath

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"
)

// PathVarName returns the name of the PATH variable as it appears in environ.
// Windows environments are case-insensitive and commonly spell it "Path"; the
// lookup honors whatever spelling the environment actually carries.
func PathVarName(environ []string) string {
	for _, kv := range environ {
		if k, _, ok := strings.Cut(kv, "="); ok && strings.EqualFold(k, "PATH") {
			return k
		}
	}
	if runtime.GOOS == "windows" {
		return "Path"
	}
	return "PATH"
}

// Getenv returns the value of key in the env slice, or "" when unset.
// The last occurrence wins, matching process environment semantics.
func Getenv(env []string, key string) string {
	prefix := key + "="
	value := ""
	for _, e := range env {
		if strings.HasPrefix(e, prefix) {
			value = e[len(prefix):]
		}
	}
	return value
}

// SetEnv sets or replaces an environment variable in the env slice.
func SetEnv(env []string, key, value string) []string {
	prefix := key + "="
	for i, e := range env {
		if strings.HasPrefix(e, prefix) {
			env[i] = prefix + value
			return env
		}
	}
	return append(env, prefix+value)
}

// PrependPath returns a copy of env with dirs prepended to the PATH variable,
// preserving the variable name spelling already present in env.
func PrependPath(env []string, dirs ...string) []string {
	if len(dirs) == 0 {
		return env
	}
	out := make([]string, len(env))
	copy(out, env)

	name := PathVarName(out)
	current := Getenv(out, name)
	joined := strings.Join(dirs, string(os.PathListSeparator))
	if current != "" {
		joined = joined + string(os.PathListSeparator) + current
	}
	return SetEnv(out, name, joined)
}

// processPathMu serializes scoped mutations of the process PATH variable so
// concurrent starts cannot interleave their mutate-restore windows.
var processPathMu sync.Mutex

// PathGuard holds the state needed to restore the process PATH variable after
// a scoped mutation.
type PathGuard struct {
	name     string
	prev     string
	had      bool
	restored bool
}

// PrependProcessPath prepends dir to the process PATH variable and returns a
// guard that restores the prior value. The process-wide mutation lock is held
// until Restore is called.
func PrependProcessPath(dir string) (*PathGuard, error) {
	processPathMu.Lock()

	name := PathVarName(os.Environ())
	prev, had := os.LookupEnv(name)

	value := dir
	if prev != "" {
		value = dir + string(os.PathListSeparator) + prev
	}
	if err := os.Setenv(name, value); err != nil {
		processPathMu.Unlock()
		return nil, fmt.Errorf("setting %s: %w", name, err)
	}
	return &PathGuard{name: name, prev: prev, had: had}, nil
}

// Restore puts the process PATH variable back to its pre-guard value. It is
// safe to call multiple times.
func (g *PathGuard) Restore() error {
	if g == nil || g.restored {
		return nil
	}
	g.restored = true
	defer processPathMu.Unlock()

	if !g.had {
		if err := os.Unsetenv(g.name); err != nil {
			return fmt.Errorf("unsetting %s: %w", g.name, err)
		}
		return nil
	}
	if err := os.Setenv(g.name, g.prev); err != nil {
		return fmt.Errorf("restoring %s: %w", g.name, err)
	}
	return nil
}
