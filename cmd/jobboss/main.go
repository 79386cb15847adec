// Command jobboss applies consumed-material counts to JobBOSS inventory.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/cyberscoundrel/jobbossutils/internal/cli"
)

func main() {
	err := cli.NewRootCommand().Execute()
	if err == nil {
		os.Exit(cli.ExitSuccess)
	}

	// ExitErrors have already been reported in the selected format. Anything
	// else comes from cobra (unknown flag, missing argument) or the root
	// command's flag checks.
	var exitErr *cli.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintln(os.Stderr, "jobboss:", err)
		os.Exit(cli.ExitCommandError)
	}
	os.Exit(exitErr.Code)
}
