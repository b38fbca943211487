// Command pullconf-agent polls a pullconf-server for this host's
// catalog and converges local resources to match it.
package main

import (
	"fmt"
	"os"

	"pullconf/cmd/pullconf-agent/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pullconf-agent: %v\n", err)
		os.Exit(1)
	}
}
