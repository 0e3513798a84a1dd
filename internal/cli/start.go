package cli

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"

	"github.com/nodex-labs/nodex/internal/extension"
	"github.com/nodex-labs/nodex/internal/linker"
	"github.com/nodex-labs/nodex/internal/workspace"
)

var (
	startDebug bool
	startRange string
)

var startCmd = &cobra.Command{
	Use:   "start <name>",
	Short: "Start an installed or linked extension",
	Long: `Start an extension in the foreground with stdio attached.

A linked directory takes precedence over installed versions so that local
development always runs the working tree. Without --range the newest
installed version starts; with --range the best installed match for the
constraint starts. The command exits with the extension's exit code.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runStart(cmd, args[0])
	},
}

func init() {
	startCmd.Flags().BoolVar(&startDebug, "debug", false, "run the manifest's debug script instead of start")
	startCmd.Flags().StringVar(&startRange, "range", "", "semver constraint selecting the installed version (e.g. \"^2.0.0\")")
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, name string) error {
	m, err := newManager(resolveRegistryURL(""))
	if err != nil {
		return err
	}
	defer m.Close()

	ext, err := resolveStartTarget(cmd, m, name)
	if err != nil {
		return err
	}
	if ext == nil {
		return fmt.Errorf("%s is not installed; run 'nodex install %s' first", name, name)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Starting %s (%s)...\n", ext.ID, ext.Kind)

	child, err := m.Start(ext, extension.StartOptions{
		Debug:  startDebug,
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	})
	if err != nil {
		return err
	}

	if err := child.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &ExitError{Code: exitErr.ExitCode()}
		}
		return fmt.Errorf("waiting for %s: %w", ext.ID, err)
	}
	return nil
}

// resolveStartTarget picks the extension to run. Linked directories win so a
// working tree shadows every installed copy of the same name. Installed
// lookups stay local: without a constraint the newest version is chosen from
// disk rather than resolving the name against the registry.
func resolveStartTarget(cmd *cobra.Command, m *extension.Manager, name string) (*extension.Extension, error) {
	if startRange == "" {
		linksPath, err := workspace.LinksPath()
		if err != nil {
			return nil, err
		}
		linked, broken, err := linker.Extensions(linksPath)
		if err != nil {
			return nil, err
		}
		for _, path := range broken {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ skipping broken link: %s\n", path)
		}
		for _, ext := range linked {
			if ext.Name == name {
				return ext, nil
			}
		}
		return newestInstalled(m, name)
	}
	return m.InstalledExtension(cmd.Context(), name, startRange)
}

// newestInstalled returns the highest installed version of name, or nil when
// none is installed. Versions that do not parse as semver sort last.
func newestInstalled(m *extension.Manager, name string) (*extension.Extension, error) {
	installed, err := m.InstalledExtensions()
	if err != nil {
		return nil, err
	}
	var matches []*extension.Extension
	for _, ext := range installed {
		if ext.Name == name {
			matches = append(matches, ext)
		}
	}
	if len(matches) == 0 {
		return nil, nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		vi, erri := semver.NewVersion(matches[i].Version)
		vj, errj := semver.NewVersion(matches[j].Version)
		if erri != nil || errj != nil {
			return errj != nil && erri == nil
		}
		return vi.GreaterThan(vj)
	})
	return matches[0], nil
}
