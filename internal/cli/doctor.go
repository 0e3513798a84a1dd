package cli

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nodex-labs/nodex/internal/config"
	"github.com/nodex-labs/nodex/internal/linker"
	"github.com/nodex-labs/nodex/internal/workspace"
)

var doctorFix bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose the environment and workspace",
	Long: `Check the Node.js toolchain, the ~/.nodex workspace layout, registry
reachability, and the link registry. With --fix missing workspace
directories are created.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "repair missing workspace directories")
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	config.Load()
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	fmt.Fprintln(out, "Environment check:")
	checkBinary(ctx, out, "node", config.Get(config.KeyNodePath))
	checkBinary(ctx, out, "npm", config.Get(config.KeyNpmPath))
	fmt.Fprintln(out)

	if err := workspace.CheckWorkspace(out, doctorFix); err != nil {
		return err
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Registry check:")
	checkRegistry(ctx, out, resolveRegistryURL(""))
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Link check:")
	checkLinks(out)
	return nil
}

// checkBinary locates a binary, preferring the configured path over PATH
// lookup, and reports its version.
func checkBinary(ctx context.Context, w io.Writer, name, configured string) {
	path := configured
	if path == "" {
		found, err := exec.LookPath(name)
		if err != nil {
			fmt.Fprintf(w, "  [FAIL] %s not found on PATH\n", name)
			if name == "node" {
				fmt.Fprintln(w, "         Install Node.js 18 or newer")
			}
			return
		}
		path = found
	}

	probe, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	output, err := exec.CommandContext(probe, path, "--version").Output()
	if err != nil {
		fmt.Fprintf(w, "  [WARN] %s at %s did not report a version: %v\n", name, path, err)
		return
	}
	version := strings.TrimSpace(strings.SplitN(string(output), "\n", 2)[0])
	fmt.Fprintf(w, "  [ OK ] %s %s (%s)\n", name, version, path)
}

// checkRegistry probes the registry root. Any HTTP answer below 500 counts
// as reachable; the registry serves metadata from GET endpoints only.
func checkRegistry(ctx context.Context, w io.Writer, registryURL string) {
	probe, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probe, http.MethodGet, registryURL, nil)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] invalid registry URL %s: %v\n", registryURL, err)
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(w, "  [WARN] %s is unreachable: %v\n", registryURL, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		fmt.Fprintf(w, "  [WARN] %s answered %s\n", registryURL, resp.Status)
		return
	}
	fmt.Fprintf(w, "  [ OK ] %s is reachable\n", registryURL)
}

func checkLinks(w io.Writer) {
	linksPath, err := workspace.LinksPath()
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] resolving link registry: %v\n", err)
		return
	}
	linked, broken, err := linker.Extensions(linksPath)
	if err != nil {
		fmt.Fprintf(w, "  [FAIL] reading %s: %v\n", linksPath, err)
		return
	}
	for _, path := range broken {
		fmt.Fprintf(w, "  [WARN] broken link %s\n", path)
		fmt.Fprintf(w, "         Run 'nodex unlink %s' to drop it\n", path)
	}
	if len(linked) == 0 && len(broken) == 0 {
		fmt.Fprintln(w, "  [INFO] no linked directories")
		return
	}
	if len(linked) > 0 {
		fmt.Fprintf(w, "  [ OK ] %d linked %s resolve\n", len(linked), plural(len(linked), "directory", "directories"))
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
