package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nodex-labs/nodex/internal/branding"
	"github.com/nodex-labs/nodex/internal/config"
	"github.com/nodex-labs/nodex/internal/updater"
	"github.com/nodex-labs/nodex/internal/workspace"
)

var (
	updateCheck   bool
	updateForce   bool
	updateVersion string
)

var updateCmd = &cobra.Command{
	Use:     "update",
	Aliases: []string{"self-update"},
	Short:   "Update nodex to the latest release",
	Long: `Download and install a newer nodex release over the current binary.

Releases come from GitHub, or from a mirror configured under mirror.url or
the ` + branding.EnvVar("MIRROR") + ` environment variable. The running binary
is backed up and restored if the new one fails verification.`,
	Args: cobra.NoArgs,
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVar(&updateCheck, "check", false, "only check whether an update is available")
	updateCmd.Flags().BoolVar(&updateForce, "force", false, "reinstall even when already up to date")
	updateCmd.Flags().StringVar(&updateVersion, "version", "", "install a specific release tag instead of the latest")
	rootCmd.AddCommand(updateCmd)
}

func runUpdate(cmd *cobra.Command, args []string) error {
	config.Load()
	out := cmd.OutOrStdout()

	mirror := config.Get(config.KeyMirrorURL)
	if env := os.Getenv(branding.EnvVar("MIRROR")); env != "" {
		mirror = env
	}
	opts := []updater.Option{updater.WithTimeout(config.UpdateTimeout())}
	if mirror != "" {
		opts = append(opts, updater.WithMirror(mirror))
	}
	u := updater.New(buildVersion, opts...)

	fmt.Fprintln(out, "Checking for updates...")
	var release *updater.Release
	var err error
	if updateVersion != "" {
		release, err = u.CheckSpecificVersion(updateVersion)
	} else {
		release, err = u.CheckLatestVersion()
	}
	if err != nil {
		return err
	}

	if updateCheck {
		available, cmpErr := updater.IsUpdateAvailable(buildVersion, release.Version)
		if cmpErr != nil {
			fmt.Fprintf(out, "Current version %s, latest release %s\n", buildVersion, release.Version)
			return nil
		}
		if !available {
			fmt.Fprintf(out, "✓ nodex %s is up to date.\n", buildVersion)
		} else {
			fmt.Fprintf(out, "Update available: %s -> %s\n", buildVersion, release.Version)
			fmt.Fprintln(out, "Run `nodex update` to install it.")
		}
		saveUpdateCache(release.Version, available)
		return nil
	}

	if updateVersion == "" && !updateForce {
		available, cmpErr := updater.IsUpdateAvailable(buildVersion, release.Version)
		if cmpErr != nil {
			return fmt.Errorf("comparing %s against %s: %w (use --force to update anyway)",
				buildVersion, release.Version, cmpErr)
		}
		if !available {
			fmt.Fprintf(out, "✓ nodex %s is up to date.\n", buildVersion)
			saveUpdateCache(release.Version, false)
			return nil
		}
	}

	currentPath, err := os.Executable()
	if err != nil {
		return fmt.Errorf("locating current binary: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "nodex-update-*")
	if err != nil {
		return fmt.Errorf("creating temp directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	fmt.Fprintf(out, "Downloading %s...\n", release.Version)
	archivePath, err := u.DownloadBinary(release, tmpDir)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "Verifying checksum...")
	if err := u.VerifyChecksum(release, archivePath); err != nil {
		return err
	}

	newBinary, err := updater.ExtractBinary(archivePath, tmpDir)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Installing to %s...\n", currentPath)
	if err := updater.ReplaceBinary(newBinary, currentPath, release.Version); err != nil {
		return err
	}

	fmt.Fprintf(out, "✓ Updated to %s\n", release.Version)
	saveUpdateCache(release.Version, false)
	return nil
}

// saveUpdateCache records the check result so the startup banner stays
// quiet until the cache goes stale. Failures are ignored; the cache is an
// optimization only.
func saveUpdateCache(latest string, available bool) {
	path, err := workspace.UpdateCachePath()
	if err != nil {
		return
	}
	_ = updater.SaveCache(path, &updater.VersionCache{
		LatestVersion:   latest,
		CurrentVersion:  buildVersion,
		CheckedAt:       time.Now(),
		UpdateAvailable: available,
	})
}
