package updater

import (
	"fmt"
	"io"
	"time"

	"github.com/nodex-labs/nodex/internal/branding"
)

// CheckAndPrintBanner prints an update banner if the cache at cachePath says
// a newer version exists. It never blocks: a stale cache is refreshed by a
// background goroutine for the next invocation.
func (u *Updater) CheckAndPrintBanner(w io.Writer, cachePath string) {
	cache, err := LoadCache(cachePath)
	if err != nil {
		// A corrupt cache only costs the banner; the refresh below
		// rewrites it.
		cache = nil
	}

	if cache != nil && cache.UpdateAvailable {
		PrintUpdateBanner(w, cache.CurrentVersion, cache.LatestVersion)
	}

	if IsCacheStale(cache, DefaultCacheMaxAge) {
		go u.refreshCache(cachePath)
	}
}

// PrintUpdateBanner prints the update notification to w.
func PrintUpdateBanner(w io.Writer, current, latest string) {
	fmt.Fprintf(w, "\nUpdate available: %s -> %s\n", current, latest)
	fmt.Fprintf(w, "    Run `%s update` to upgrade\n\n", branding.CLIName())
}

// refreshCache fetches the latest release and rewrites the cache file. It
// runs in a background goroutine and never fails loudly.
func (u *Updater) refreshCache(cachePath string) {
	release, err := u.CheckLatestVersion()
	if err != nil {
		return
	}

	available, err := IsUpdateAvailable(u.currentVersion, release.Version)
	if err != nil {
		return
	}

	_ = SaveCache(cachePath, &VersionCache{
		LatestVersion:   release.Version,
		CurrentVersion:  u.currentVersion,
		CheckedAt:       time.Now(),
		UpdateAvailable: available,
	})
}
