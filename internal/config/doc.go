// Package config manages user-level settings stored at ~/.nodex/config.yaml.
// It provides functions to load, read, and write configuration keys such as
// the registry URL, tool paths, and install timeout.
package config
