package cli

import (
	"fmt"

	"github.com/nodex-labs/nodex/internal/extension"
	"github.com/nodex-labs/nodex/internal/linker"
	"github.com/nodex-labs/nodex/internal/workspace"
	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall <name>[@<version>]",
	Short: "Remove installed extension versions",
	Long: `Remove installed versions of an extension from ~/.nodex/extensions/.

Without a version every installed version of the extension is removed. With
a version or range only the best installed match is removed.`,
	Args: cobra.ExactArgs(1),
	RunE: runUninstall,
}

func init() {
	rootCmd.AddCommand(uninstallCmd)
}

func runUninstall(cmd *cobra.Command, args []string) error {
	name, version := splitIdentity(args[0])

	m, err := newManager(resolveRegistryURL(""))
	if err != nil {
		return err
	}
	defer m.Close()

	ctx := cmd.Context()

	var targets []*extension.Extension
	if version != "" {
		ext, err := m.InstalledExtension(ctx, name, version)
		if err != nil {
			return err
		}
		if ext != nil {
			targets = append(targets, ext)
		}
	} else {
		installed, err := m.InstalledExtensions()
		if err != nil {
			return err
		}
		for _, ext := range installed {
			if ext.Name == name {
				targets = append(targets, ext)
			}
		}
	}

	if len(targets) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%s is not installed.\n", args[0])
		suggestUnlink(cmd, name)
		return nil
	}

	for _, ext := range targets {
		if err := m.Remove(ctx, ext); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %s\n", ext.ID)
	}
	return nil
}

// suggestUnlink points at the unlink command when the name resolves to a
// linked local directory instead of an installed version.
func suggestUnlink(cmd *cobra.Command, name string) {
	linksPath, err := workspace.LinksPath()
	if err != nil {
		return
	}
	linked, _, err := linker.Extensions(linksPath)
	if err != nil {
		return
	}
	for _, ext := range linked {
		if ext.Name == name {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s is linked from %s; use 'nodex unlink %s' to remove the link.\n",
				name, ext.Location(), ext.Location())
			return
		}
	}
}
