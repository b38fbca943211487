// Command pullconf-server compiles Pullconf resource trees into
// per-client catalogs and serves them to agents over HTTPS.
package main

import (
	"fmt"
	"os"

	"pullconf/cmd/pullconf-server/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "pullconf-server: %v\n", err)
		os.Exit(1)
	}
}
