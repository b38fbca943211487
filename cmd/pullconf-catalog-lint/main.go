// Command pullconf-catalog-lint compiles every client under
// PULLCONF_RESOURCE_DIR through the same pipeline the server uses to
// publish catalogs, and reports per-client pass/fail without starting
// a server or touching a catalog store.
package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"pullconf/internal/loader"
	"pullconf/internal/reload"
)

var (
	version = "dev"
	quiet   bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "pullconf-catalog-lint",
	Short:   "Compile every client's catalog and report failures",
	Version: version,
	Long: `pullconf-catalog-lint runs the same resolve/parse/assemble/validate
pipeline a pullconf-server uses on reload, for every client under
PULLCONF_RESOURCE_DIR, and prints a pass/fail report without serving
anything. Exit status is 1 if any client fails to compile.

PULLCONF_ASSET_DIR, if set, is checked against every file resource's
source attribute the same way the server does; if unset, any resource
declaring a source fails the lint (there is no root for it to resolve
under).`,
	RunE: runLint,
}

func init() {
	rootCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only print failing clients")
}

func runLint(cmd *cobra.Command, args []string) error {
	resourceDir := os.Getenv("PULLCONF_RESOURCE_DIR")
	if resourceDir == "" {
		return fmt.Errorf("PULLCONF_RESOURCE_DIR must be set")
	}
	assetDir := os.Getenv("PULLCONF_ASSET_DIR")

	clients, groups, err := loader.Load(resourceDir)
	if err != nil {
		return fmt.Errorf("loading resource tree: %w", err)
	}

	groupsByName := make(map[string]loader.GroupDocument, len(groups))
	for _, g := range groups {
		groupsByName[g.Name] = g
	}

	sort.Slice(clients, func(i, j int) bool {
		return clients[i].Hostname < clients[j].Hostname
	})

	failed := 0
	for _, client := range clients {
		entry, err := reload.CompileClient(client, groupsByName, assetDir)
		if err != nil {
			failed++
			fmt.Printf("FAIL %s: %v\n", client.Hostname, err)
			continue
		}
		if !quiet {
			fmt.Printf("PASS %s (%d resources, version %s)\n", client.Hostname, len(entry.Catalog.Entries), entry.Catalog.Version)
		}
	}

	fmt.Printf("\n%d client(s) checked, %d failed\n", len(clients), failed)
	if failed > 0 {
		os.Exit(1)
	}
	return nil
}
