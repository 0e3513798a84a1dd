package cli

import (
	"log/slog"
	"os"

	"github.com/nodex-labs/nodex/internal/branding"
	"github.com/nodex-labs/nodex/internal/config"
	"github.com/nodex-labs/nodex/internal/updater"
	"github.com/nodex-labs/nodex/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var rootVerbose bool

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` installs, runs, and manages long-lived extensions distributed as
npm packages. Extensions live in versioned folders under ~/.nodex/extensions
and are started through their package.json start script.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := slog.LevelWarn
		if rootVerbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

		// Skip the banner for commands that manage their own version state.
		name := cmd.Name()
		if name == "update" || name == "self-update" || name == "version" {
			return
		}

		// Non-blocking banner from cached version check.
		cachePath, err := workspace.UpdateCachePath()
		if err != nil {
			return
		}
		u := updater.New(buildVersion, updater.WithTimeout(config.UpdateTimeout()))
		u.CheckAndPrintBanner(os.Stderr, cachePath)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&rootVerbose, "verbose", "v", false, "Enable debug logging")
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	return rootCmd.Execute()
}
