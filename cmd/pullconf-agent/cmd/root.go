// Package cmd implements the pullconf-agent command tree.
package cmd

import "github.com/spf13/cobra"

var rootCmd = &cobra.Command{
	Use:   "pullconf-agent",
	Short: "Pull and converge this host's Pullconf catalog",
	Long: `pullconf-agent periodically fetches this host's catalog from a
pullconf-server, builds its dependency graph, and schedules resource
application in dependency order, continuing past isolated failures.

Configuration is read entirely from the process environment (see
PULLCONF_SERVER_URL, PULLCONF_API_KEY, and related variables).`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(versionCmd)
}
