package cli

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/nodex-labs/nodex/internal/linker"
	"github.com/nodex-labs/nodex/internal/workspace"
	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed and linked extensions",
	Long: `List every extension under ~/.nodex/extensions/ plus the local
directories recorded in ~/.nodex/links.yaml.`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(listCmd)
}

// listEntry represents one extension for display.
type listEntry struct {
	Name     string `json:"name"`
	Version  string `json:"version"`
	Kind     string `json:"kind"`
	Location string `json:"location"`
}

func runList(cmd *cobra.Command, args []string) error {
	m, err := newManager(resolveRegistryURL(""))
	if err != nil {
		return err
	}
	defer m.Close()

	installed, err := m.InstalledExtensions()
	if err != nil {
		return err
	}

	var entries []listEntry
	for _, ext := range installed {
		entries = append(entries, listEntry{
			Name:     ext.Name,
			Version:  ext.Version,
			Kind:     ext.Kind.String(),
			Location: ext.Location(),
		})
	}

	linksPath, err := workspace.LinksPath()
	if err != nil {
		return err
	}
	linked, broken, err := linker.Extensions(linksPath)
	if err != nil {
		return err
	}
	for _, ext := range linked {
		entries = append(entries, listEntry{
			Name:     ext.Name,
			Version:  ext.Version,
			Kind:     ext.Kind.String(),
			Location: ext.Location(),
		})
	}

	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No extensions installed yet.")
		return nil
	}

	if listJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Name", "Version", "Kind", "Location"})
	for _, e := range entries {
		t.AppendRow(table.Row{e.Name, e.Version, e.Kind, e.Location})
	}
	style := table.StyleLight
	style.Options.DrawBorder = false
	t.SetStyle(style)
	t.Render()

	for _, path := range broken {
		fmt.Fprintf(cmd.OutOrStdout(), "⚠ broken link: %s (directory or manifest unreadable)\n", path)
	}
	return nil
}
