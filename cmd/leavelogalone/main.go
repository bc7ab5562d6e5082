// leavelogalone - Log Message Extraction Tool
//
// leavelogalone extracts every log message call site of a C++ project into a
// database of format strings and matching patterns, and matches runtime logs
// against that database.
package main

import (
	"os"

	"github.com/davidgumberg/leavelogalone/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
