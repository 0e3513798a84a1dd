package cli

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nodex-labs/nodex/internal/extension"
	"github.com/nodex-labs/nodex/internal/linker"
	"github.com/nodex-labs/nodex/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	infoJSON     bool
	infoRegistry string
)

var infoCmd = &cobra.Command{
	Use:   "info <name>[@<version>]",
	Short: "Show resolved package metadata",
	Long: `Resolve a package against the registry and show its metadata along
with any installed versions and local links.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func init() {
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Output in JSON format")
	infoCmd.Flags().StringVar(&infoRegistry, "registry", "", "Registry URL override for this invocation")
	rootCmd.AddCommand(infoCmd)
}

// infoOutput is the JSON shape of the info command.
type infoOutput struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description,omitempty"`
	Engines     map[string]string `json:"engines,omitempty"`
	Source      string            `json:"source"`
	Available   []string          `json:"available,omitempty"`
	Installed   []string          `json:"installed,omitempty"`
	Linked      []string          `json:"linked,omitempty"`
}

func runInfo(cmd *cobra.Command, args []string) error {
	name, version := splitIdentity(args[0])

	m, err := newManager(resolveRegistryURL(infoRegistry))
	if err != nil {
		return err
	}
	defer m.Close()

	pkg, err := m.FindPackage(cmd.Context(), name, version)
	if err != nil {
		return err
	}

	out := infoOutput{
		Name:        pkg.Name,
		Version:     pkg.Version,
		Description: pkg.Description,
		Engines:     pkg.Engines,
		Source:      pkg.SourceSpec,
		Available:   pkg.AvailableVersions,
	}

	installed, err := m.InstalledExtensions()
	if err != nil {
		return err
	}
	var installedExts []*extension.Extension
	for _, ext := range installed {
		if ext.Name == pkg.Name {
			out.Installed = append(out.Installed, ext.Version)
			installedExts = append(installedExts, ext)
		}
	}

	linksPath, err := workspace.LinksPath()
	if err != nil {
		return err
	}
	linked, _, err := linker.Extensions(linksPath)
	if err != nil {
		return err
	}
	for _, ext := range linked {
		if ext.Name == pkg.Name {
			out.Linked = append(out.Linked, ext.Location())
		}
	}

	if infoJSON {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s@%s\n", out.Name, out.Version)
	if out.Description != "" {
		fmt.Fprintf(w, "  %s\n", out.Description)
	}
	fmt.Fprintf(w, "  Source: %s\n", out.Source)
	if len(out.Engines) > 0 {
		names := make([]string, 0, len(out.Engines))
		for engine := range out.Engines {
			names = append(names, engine)
		}
		sort.Strings(names)
		for _, engine := range names {
			fmt.Fprintf(w, "  Engine: %s %s\n", engine, out.Engines[engine])
		}
	}
	if n := len(out.Available); n > 0 {
		fmt.Fprintf(w, "  Published versions: %d (see 'nodex versions %s')\n", n, out.Name)
	}

	if len(installedExts) == 0 {
		fmt.Fprintln(w, "  Installed: no")
	}
	for _, ext := range installedExts {
		fmt.Fprintf(w, "  Installed: %s at %s\n", ext.Version, ext.Location())
		if docPath := ext.ConfigurationPath(); docPath != "" {
			fmt.Fprintf(w, "    Docs: %s\n", docPath)
		}
	}
	for _, path := range out.Linked {
		fmt.Fprintf(w, "  Linked: %s\n", path)
	}
	return nil
}
