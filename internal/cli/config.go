package cli

import (
	"fmt"

	"github.com/nodex-labs/nodex/internal/config"
	"github.com/spf13/cobra"
)

func init() {
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configGetCmd)
	rootCmd.AddCommand(configCmd)
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage user settings",
	Long: `Read and write nodex configuration stored at ~/.nodex/config.yaml.

Well-known keys:
  registry.url     npm-compatible registry base URL
  npm.path         npm executable used for installs
  node.path        node executable substituted into start scripts
  extensions.root  directory holding installed extensions
  install.timeout  maximum wait for install synchronization (e.g. 5m)
  update.timeout   HTTP timeout for release checks and downloads (e.g. 1m)
  mirror.url       alternate release host for self-updates`,
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		key, value := args[0], args[1]
		if err := config.Set(key, value); err != nil {
			return fmt.Errorf("setting config key %q: %w", key, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		value := config.Get(args[0])
		fmt.Fprintln(cmd.OutOrStdout(), value)
		return nil
	},
}
