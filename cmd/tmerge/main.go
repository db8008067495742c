// Command tmerge plans and applies temporal merges of source batches into
// versioned target timelines.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/tmerge/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
