package updater

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/nodex-labs/nodex/internal/branding"
)

// ArchiveName returns the release asset name for the current platform,
// following the GoReleaser template {name}_{os}_{arch}.tar.gz (.zip on
// Windows).
func ArchiveName() string {
	ext := ".tar.gz"
	if runtime.GOOS == "windows" {
		ext = ".zip"
	}
	return fmt.Sprintf("%s_%s_%s%s", branding.CLIName(), runtime.GOOS, runtime.GOARCH, ext)
}

// SelectAssetForPlatform finds the asset matching the current OS/arch.
func SelectAssetForPlatform(assets []Asset) (*Asset, error) {
	expected := ArchiveName()
	if a := findAsset(assets, expected); a != nil {
		return a, nil
	}

	// Fall back to any archive carrying the os_arch pair, tolerating
	// variations in the release naming template.
	pattern := fmt.Sprintf("%s_%s", runtime.GOOS, runtime.GOARCH)
	for i := range assets {
		if strings.Contains(assets[i].Name, pattern) && isArchive(assets[i].Name) {
			return &assets[i], nil
		}
	}

	return nil, fmt.Errorf("no asset found for %s/%s (expected %s)", runtime.GOOS, runtime.GOARCH, expected)
}

func isArchive(name string) bool {
	return strings.HasSuffix(name, ".tar.gz") || strings.HasSuffix(name, ".zip")
}
