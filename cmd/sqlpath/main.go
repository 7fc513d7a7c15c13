// Command sqlpath renders and runs schema-aware SQL queries.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/sqlpath/internal/cli"
)

func main() {
	cmd := cli.NewRootCommand()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.GetExitCode(err))
	}
}
