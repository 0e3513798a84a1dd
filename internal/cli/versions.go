package cli

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/spf13/cobra"
)

var versionsSorted bool

var versionsCmd = &cobra.Command{
	Use:   "versions <name>",
	Short: "List published versions of a package",
	Long: `List every version of a package the registry reports, in registry
order. Use --sorted for newest-first semantic ordering.`,
	Args: cobra.ExactArgs(1),
	RunE: runVersions,
}

func init() {
	versionsCmd.Flags().BoolVar(&versionsSorted, "sorted", false, "Sort newest first instead of registry order")
	rootCmd.AddCommand(versionsCmd)
}

func runVersions(cmd *cobra.Command, args []string) error {
	m, err := newManager(resolveRegistryURL(""))
	if err != nil {
		return err
	}
	defer m.Close()

	versions, err := m.PackageVersions(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	if len(versions) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s has no published versions.\n", args[0])
		return nil
	}

	if versionsSorted {
		versions = sortVersionsDesc(versions)
	}

	for _, v := range versions {
		fmt.Fprintln(cmd.OutOrStdout(), v)
	}
	return nil
}

// sortVersionsDesc orders versions newest first. Entries that do not parse
// as semver keep their relative registry order at the end.
func sortVersionsDesc(versions []string) []string {
	out := append([]string(nil), versions...)
	sort.SliceStable(out, func(i, j int) bool {
		vi, errI := semver.NewVersion(out[i])
		vj, errJ := semver.NewVersion(out[j])
		if errI != nil || errJ != nil {
			return errJ != nil && errI == nil
		}
		return vi.GreaterThan(vj)
	})
	return out
}
