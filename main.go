// Command volpack creates, extracts and verifies multi-volume, encrypted archives.
package main

import (
	"fmt"
	"os"

	"github.com/idelchi/volpack/internal/commands"
	"github.com/idelchi/volpack/internal/config"
	"github.com/idelchi/volpack/internal/logic"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "unknown"

func main() {
	cfg := config.Default()

	if err := commands.NewRootCommand(cfg, version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		os.Exit(logic.ExitCode(err))
	}
}
