// Command kvengine is the engine's entry point: with no arguments it runs
// the server, and "kvengine client" runs a small demo client against it —
// the same two-mode contract original_source/src/main.rs's main() dispatches
// on args[1] == "client", rebuilt as a cobra command the way
// armandParser-gofast-server/cmd.go structures its root command and
// subcommands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "kvengine",
	Short: "kvengine is an in-memory key-value server",
	Long: `kvengine is a single-threaded, epoll-driven in-memory key-value
store speaking a length-prefixed binary protocol. Run with no arguments to
start the server; run "kvengine client" for a small interactive demo
client.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(clientCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "kvengine: %v\n", err)
		os.Exit(1)
	}
}
