// Command cogtask runs flanker and Stroop reaction-time experiments.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/cogtask/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
