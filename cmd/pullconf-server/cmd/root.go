// Package cmd implements the pullconf-server command tree.
package cmd

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "pullconf-server",
	Short: "Compile and serve per-client Pullconf catalogs",
	Long: `pullconf-server walks a resource tree of client and group TOML
documents, compiles a dependency-validated catalog per client, and
serves them to agents over an authenticated HTTPS API.

Configuration is read entirely from the process environment (see
PULLCONF_LISTEN_ON, PULLCONF_RESOURCE_DIR, and related variables);
there are no command-line flags for daemon settings.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
