package cli

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nodex-labs/nodex/internal/branding"
	"github.com/nodex-labs/nodex/internal/config"
	"github.com/nodex-labs/nodex/internal/extension"
	"github.com/nodex-labs/nodex/internal/installer"
	"github.com/nodex-labs/nodex/internal/npm"
	"github.com/nodex-labs/nodex/internal/workspace"
	"github.com/spf13/cobra"
)

var (
	installForce    bool
	installTimeout  time.Duration
	installRegistry string
)

var installCmd = &cobra.Command{
	Use:   "install <name>[@<version>]",
	Short: "Install an extension",
	Long: `Install an extension into ~/.nodex/extensions/.

The specifier accepts anything npm understands: an exact version, a range,
a dist-tag, a local directory, or a tarball path. Without a specifier the
latest published version is installed.

  nodex install weather-feed
  nodex install weather-feed@1.4.0
  nodex install @acme/weather-feed@^1.0.0
  nodex install weather-feed@./local/checkout`,
	Args: cobra.ExactArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false, "Reinstall even if the version is already installed")
	installCmd.Flags().DurationVar(&installTimeout, "timeout", 0, "Maximum wait for a concurrent install of the same version")
	installCmd.Flags().StringVar(&installRegistry, "registry", "", "Registry URL override for this invocation")
	rootCmd.AddCommand(installCmd)
}

func runInstall(cmd *cobra.Command, args []string) error {
	name, version := splitIdentity(args[0])

	m, err := newManager(resolveRegistryURL(installRegistry))
	if err != nil {
		return err
	}
	defer m.Close()

	ctx := cmd.Context()
	pkg, err := m.FindPackage(ctx, name, version)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Installing %s...\n", pkg.ID)

	timeout := installTimeout
	if timeout <= 0 {
		timeout = config.InstallTimeout()
	}

	ext, err := m.Install(ctx, pkg, extension.InstallOptions{
		Force:   installForce,
		MaxWait: timeout,
		Progress: func(percent int, message string) {
			fmt.Fprintf(cmd.OutOrStdout(), "  [%3d%%] %s\n", percent, message)
		},
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Installed %s\n", ext.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "  Location: %s\n", ext.Location())
	return nil
}

// splitIdentity splits a "name[@version]" argument. The version part starts
// at the last @ so scoped names keep their @org/ prefix intact.
func splitIdentity(arg string) (name, version string) {
	if i := strings.LastIndex(arg, "@"); i > 0 {
		return arg[:i], arg[i+1:]
	}
	return arg, ""
}

// resolveRegistryURL picks the registry for a command. A flag beats the
// environment, which beats the config file, which beats the built-in
// default.
func resolveRegistryURL(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	url := config.RegistryURL()
	if env := os.Getenv(branding.EnvVar("REGISTRY")); env != "" {
		url = env
	}
	return url
}

// installRoot resolves the extension installation root. The environment
// override wins over the config key, which wins over the workspace default.
func installRoot() (string, error) {
	root := config.Get(config.KeyExtensionsRoot)
	if env := os.Getenv(branding.EnvVar("EXTENSIONS")); env != "" {
		root = env
	}
	if root != "" {
		return root, nil
	}
	return workspace.ExtensionsRoot()
}

// newManager wires an extension manager from the workspace configuration.
// The caller owns the manager and must Close it.
func newManager(registryURL string) (*extension.Manager, error) {
	config.Load()

	root, err := installRoot()
	if err != nil {
		return nil, err
	}

	cacheDir, err := workspace.RegistryCachePath()
	if err != nil {
		return nil, err
	}
	cache := npm.NewCache(cacheDir, npm.DefaultCacheTTL)

	client := npm.NewClient(
		npm.WithRegistryURL(registryURL),
		npm.WithCache(cache),
	)

	toolOpts := []installer.Option{installer.WithRegistryURL(registryURL)}
	if npmPath := config.Get(config.KeyNpmPath); npmPath != "" {
		toolOpts = append(toolOpts, installer.WithPath(npmPath))
	}
	tool, err := installer.NewTool(toolOpts...)
	if err != nil {
		return nil, err
	}

	opts := []extension.Option{
		extension.WithRegistry(client),
		extension.WithNpmTool(tool),
		extension.WithMetadataCache(cache),
	}
	if nodePath := config.Get(config.KeyNodePath); nodePath != "" {
		opts = append(opts, extension.WithNodePath(nodePath))
	}

	return extension.NewManager(root, opts...)
}
