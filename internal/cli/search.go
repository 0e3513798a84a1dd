package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"unicode"

	"github.com/nodex-labs/nodex/internal/linker"
	"github.com/nodex-labs/nodex/internal/workspace"
	"github.com/spf13/cobra"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var searchJSON bool

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search installed and linked extensions",
	Long: `Search extension names and descriptions with case- and
diacritic-insensitive substring matching, so "cafe" finds "Café-Feed".`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output in JSON format")
	rootCmd.AddCommand(searchCmd)
}

// searchEntry represents one match for display.
type searchEntry struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Kind        string `json:"kind"`
	Description string `json:"description,omitempty"`
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := foldForSearch(args[0])

	m, err := newManager(resolveRegistryURL(""))
	if err != nil {
		return err
	}
	defer m.Close()

	installed, err := m.InstalledExtensions()
	if err != nil {
		return err
	}

	linksPath, err := workspace.LinksPath()
	if err != nil {
		return err
	}
	linked, _, err := linker.Extensions(linksPath)
	if err != nil {
		return err
	}

	var entries []searchEntry
	for _, ext := range append(installed, linked...) {
		entry := searchEntry{
			Name:    ext.Name,
			Version: ext.Version,
			Kind:    ext.Kind.String(),
		}
		if def, defErr := ext.Definition(); defErr == nil {
			entry.Description = def.Description
		}
		if matchesQuery(entry, query) {
			entries = append(entries, entry)
		}
	}

	if len(entries) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "No extensions match %q.\n", args[0])
		return nil
	}

	if searchJSON {
		data, err := json.MarshalIndent(entries, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tVERSION\tKIND\tDESCRIPTION")
	for _, e := range entries {
		desc := e.Description
		if desc == "" {
			desc = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Name, e.Version, e.Kind, desc)
	}
	return w.Flush()
}

// matchesQuery reports whether the folded query is a substring of the
// entry's folded name or description.
func matchesQuery(entry searchEntry, foldedQuery string) bool {
	if strings.Contains(foldForSearch(entry.Name), foldedQuery) {
		return true
	}
	return entry.Description != "" && strings.Contains(foldForSearch(entry.Description), foldedQuery)
}

// foldForSearch lowercases s and strips combining diacritical marks so
// accented and unaccented spellings compare equal.
func foldForSearch(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}
