package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nodex-labs/nodex/internal/scaffold"
	"github.com/nodex-labs/nodex/internal/workspace"
)

var (
	initName        string
	initDescription string
	initGlobal      bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Scaffold a new extension or initialize the workspace",
	Long: `Scaffold a new extension project in the given directory.

The directory defaults to the current one and must be empty. Without --name
the extension is named after the directory. With --global the command
initializes ~/.nodex instead of scaffolding a project.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initName, "name", "", "extension name (defaults to the directory name)")
	initCmd.Flags().StringVar(&initDescription, "description", "", "extension description")
	initCmd.Flags().BoolVar(&initGlobal, "global", false, "initialize the ~/.nodex workspace instead")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if initGlobal {
		return workspace.InitGlobal(cmd.OutOrStdout())
	}

	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}

	name := initName
	if name == "" {
		name = filepath.Base(abs)
	}

	data := scaffold.NewData(name, initDescription)
	result, err := scaffold.Generate(data, abs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created extension %s in %s\n", name, result.OutputDir)
	for _, file := range result.Files {
		fmt.Fprintf(out, "  created %s\n", file)
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "  ⚠ %s\n", warning)
	}
	fmt.Fprintf(out, "\nNext steps:\n")
	fmt.Fprintf(out, "  nodex link %s\n", dir)
	fmt.Fprintf(out, "  nodex start %s\n", name)
	return nil
}
