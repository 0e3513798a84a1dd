package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nodex-labs/nodex/internal/config"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove all installed extensions",
	Long: `Delete and recreate the extensions root, removing every installed
version and the registry metadata cache. Linked directories are not touched.
The reset fails while another process holds the root.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(resetCmd)
}

func runReset(cmd *cobra.Command, args []string) error {
	m, err := newManager(resolveRegistryURL(""))
	if err != nil {
		return err
	}
	defer m.Close()

	if !resetYes {
		fmt.Fprintf(cmd.OutOrStdout(), "This removes every installed extension under %s.\n", m.Root())
		fmt.Fprint(cmd.OutOrStdout(), "Are you sure? [y/N]: ")
		scanner := bufio.NewScanner(cmd.InOrStdin())
		if !scanner.Scan() {
			return nil
		}
		answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if answer != "y" && answer != "yes" {
			fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
			return nil
		}
	}

	if err := m.Reset(cmd.Context(), config.InstallTimeout()); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "✓ Extensions root reset.")
	return nil
}
