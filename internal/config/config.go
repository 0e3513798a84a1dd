package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/nodex-labs/nodex/internal/branding"
	"github.com/nodex-labs/nodex/internal/workspace"
)

const (
	fileName = "config"
	fileType = "yaml"
)

// Well-known configuration keys.
const (
	KeyRegistryURL    = "registry.url"
	KeyNpmPath        = "npm.path"
	KeyNodePath       = "node.path"
	KeyExtensionsRoot = "extensions.root"
	KeyInstallTimeout = "install.timeout"
	KeyUpdateTimeout  = "update.timeout"
	KeyMirrorURL      = "mirror.url"
)

// Dir returns the path to the config directory (~/.nodex/).
func Dir() string {
	root, err := workspace.HomeRoot()
	if err != nil {
		return filepath.Join(".", branding.HomeDir())
	}
	return root
}

// FilePath returns the full path to the config file (~/.nodex/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes Viper to read from the config file and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix(branding.EnvPrefix())
	viper.AutomaticEnv()

	viper.SetDefault(KeyRegistryURL, branding.RegistryURL())
	viper.SetDefault(KeyInstallTimeout, "5m")
	viper.SetDefault(KeyUpdateTimeout, "1m")

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Get returns a config value by key. Returns empty string if not set.
func Get(key string) string {
	return viper.GetString(key)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()

	// Create the file if it doesn't exist.
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// RegistryURL returns the configured registry base URL.
func RegistryURL() string {
	return viper.GetString(KeyRegistryURL)
}

// InstallTimeout returns the configured maximum wait for install
// synchronization, falling back to five minutes on unparsable values.
func InstallTimeout() time.Duration {
	d := viper.GetDuration(KeyInstallTimeout)
	if d <= 0 {
		return 5 * time.Minute
	}
	return d
}

// UpdateTimeout returns the configured HTTP timeout for release checks and
// downloads, falling back to one minute on unparsable values.
func UpdateTimeout() time.Duration {
	d := viper.GetDuration(KeyUpdateTimeout)
	if d <= 0 {
		return time.Minute
	}
	return d
}
