// Command nethawk is the orchestrator's entry point: it wires the concrete
// service and module packages into the process-wide registries via their
// init()-time registration, then hands off to the cobra command tree.
package main

import (
	"fmt"
	"os"

	"github.com/nethawk-io/nethawk/internal/cli"

	_ "github.com/nethawk-io/nethawk/internal/module/discovery"
	_ "github.com/nethawk-io/nethawk/internal/module/protocols/http"
	_ "github.com/nethawk-io/nethawk/internal/service"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
