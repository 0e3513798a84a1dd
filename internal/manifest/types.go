package manifest

import (
	"encoding/json"
	"strings"
)

// Script name constants for the entry point selection.
const (
	ScriptStart = "start"
	ScriptDebug = "debug"
)

// PackageManifest is the parsed package.json of an extension.
type PackageManifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description,omitempty"`
	Keywords        []string          `json:"keywords,omitempty"`
	Main            string            `json:"main,omitempty"`
	Scripts         map[string]string `json:"scripts,omitempty"`
	Engines         map[string]string `json:"engines,omitempty"`
	Bin             json.RawMessage   `json:"bin,omitempty"`
	Dependencies    map[string]string `json:"dependencies,omitempty"`
	DevDependencies map[string]string `json:"devDependencies,omitempty"`
}

// ID returns the package identifier in name@version form. Scoped names keep
// their @org/ prefix, e.g. "@acme/tools@1.2.3".
func (m *PackageManifest) ID() string {
	return m.Name + "@" + m.Version
}

// EntryCommand returns the script command line used to start the extension.
// When debug is true and a non-blank debug script is declared, it takes
// precedence over start. The second return is false when no usable script
// exists.
func (m *PackageManifest) EntryCommand(debug bool) (string, bool) {
	if m.Scripts == nil {
		return "", false
	}
	if debug {
		if cmd, ok := m.Scripts[ScriptDebug]; ok && strings.TrimSpace(cmd) != "" {
			return cmd, true
		}
	}
	cmd, ok := m.Scripts[ScriptStart]
	if !ok || strings.TrimSpace(cmd) == "" {
		return "", false
	}
	return cmd, true
}

// BinEntries normalizes the bin field to a name-to-path map. npm allows both
// a bare string (mapped to the unscoped package name) and an object form.
func (m *PackageManifest) BinEntries() map[string]string {
	if len(m.Bin) == 0 {
		return nil
	}

	var single string
	if err := json.Unmarshal(m.Bin, &single); err == nil {
		name := m.Name
		if idx := strings.LastIndex(name, "/"); idx >= 0 {
			name = name[idx+1:]
		}
		return map[string]string{name: single}
	}

	var entries map[string]string
	if err := json.Unmarshal(m.Bin, &entries); err == nil {
		return entries
	}
	return nil
}

// NodeEngine returns the node version constraint declared under engines,
// or "" when absent.
func (m *PackageManifest) NodeEngine() string {
	if m.Engines == nil {
		return ""
	}
	return m.Engines["node"]
}
