package updater

import (
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// IsUpdateAvailable reports whether latest is strictly newer than current.
// Development builds ("dev") are not versions and report an error, so callers
// fall back to showing both strings instead of a verdict.
func IsUpdateAvailable(current, latest string) (bool, error) {
	cv, err := parseTag(current)
	if err != nil {
		return false, err
	}
	lv, err := parseTag(latest)
	if err != nil {
		return false, err
	}
	return lv.GreaterThan(cv), nil
}

// parseTag parses a version as it appears in release tags or build metadata,
// tolerating the leading "v" that GitHub tags carry.
func parseTag(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(strings.TrimPrefix(s, "v"))
	if err != nil {
		return nil, fmt.Errorf("parsing version %q: %w", s, err)
	}
	return v, nil
}
