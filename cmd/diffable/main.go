// Command diffable inspects, edits and verifies diffable databases.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/diffable/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(cli.GetExitCode(err))
	}
}
