package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nodex-labs/nodex/internal/linker"
	"github.com/nodex-labs/nodex/internal/workspace"
)

var unlinkCmd = &cobra.Command{
	Use:   "unlink <directory>",
	Short: "Remove a linked extension directory",
	Long: `Remove a directory from the link registry. The directory itself is left
untouched. Unlinking works even after the directory has been deleted.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		linksPath, err := workspace.LinksPath()
		if err != nil {
			return err
		}
		if err := linker.Remove(linksPath, args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Unlinked %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(unlinkCmd)
}
