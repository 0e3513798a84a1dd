// Package branding provides compile-time identity values for the CLI.
//
// Forkers edit branding.yaml in this package, and Go's //go:embed bakes
// it into the binary.
package branding

import (
	_ "embed"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
)

//go:embed branding.yaml
var rawBranding []byte

// Parsed branding values, loaded once on first access.
var (
	once     sync.Once
	defaults brand
)

type brand struct {
	CLIName     string `yaml:"cli_name"`
	DisplayName string `yaml:"display_name"`
	Description string `yaml:"description"`
	HomeDir     string `yaml:"home_dir"`
	EnvPrefix   string `yaml:"env_prefix"`
	GitHubRepo  string `yaml:"github_repo"`
	RegistryURL string `yaml:"registry_url"`
}

func load() {
	once.Do(func() {
		// Set hard defaults in case the embedded file is missing/empty.
		defaults = brand{
			CLIName:     "nodex",
			DisplayName: "Nodex",
			Description: "Lifecycle manager for npm-distributed extensions",
			HomeDir:     ".nodex",
			EnvPrefix:   "NODEX",
			GitHubRepo:  "nodex-labs/nodex",
			RegistryURL: "https://registry.npmjs.org",
		}
		// Overlay with embedded YAML values.
		_ = yaml.Unmarshal(rawBranding, &defaults)
	})
}

// CLIName returns the root command name (e.g., "nodex").
func CLIName() string { load(); return defaults.CLIName }

// DisplayName returns the human-readable product name (e.g., "Nodex").
func DisplayName() string { load(); return defaults.DisplayName }

// Description returns the short product description.
func Description() string { load(); return defaults.Description }

// HomeDir returns the dot-directory name under $HOME (e.g., ".nodex").
func HomeDir() string { load(); return defaults.HomeDir }

// EnvPrefix returns the environment variable prefix (e.g., "NODEX").
func EnvPrefix() string { load(); return defaults.EnvPrefix }

// GitHubRepo returns the "owner/repo" string (e.g., "nodex-labs/nodex").
func GitHubRepo() string { load(); return defaults.GitHubRepo }

// RegistryURL returns the default npm registry base URL.
func RegistryURL() string { load(); return defaults.RegistryURL }

// EnvVar returns a fully qualified env var name, e.g., EnvVar("HOME") → "NODEX_HOME".
func EnvVar(suffix string) string {
	load()
	return defaults.EnvPrefix + "_" + strings.ToUpper(suffix)
}
