package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodex-labs/nodex/internal/linker"
	"github.com/nodex-labs/nodex/internal/workspace"
)

var linkCmd = &cobra.Command{
	Use:   "link <directory>",
	Short: "Link a local extension directory",
	Long: `Register a local directory as an extension without installing it.

The directory must contain a valid package.json. Linked extensions show up
in list and search, and start prefers them over installed versions of the
same name, so the working tree is what runs during development.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		linksPath, err := workspace.LinksPath()
		if err != nil {
			return err
		}
		ext, err := linker.Add(linksPath, args[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Linked %s -> %s\n", ext.ID, ext.Location())
		fmt.Fprintf(cmd.OutOrStdout(), "  Run 'nodex start %s' to launch it.\n", ext.Name)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)
}
