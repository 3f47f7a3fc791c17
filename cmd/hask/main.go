// hask is a command line client that drives a local GHCi directly,
// without going through the MCP server.
package main

import (
	"os"

	"github.com/s9gf4ult/haskell-mode/internal/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
