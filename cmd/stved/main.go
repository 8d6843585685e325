// Command stved is the composition root: it wires the Store, Scorer,
// Ingestor, Ticket Manager, Broadcaster and HTTP adapter together and
// runs them until a shutdown signal arrives. Grounded on the teacher's
// cmd/hvac-controller/main.go (config load, logging init, construct
// collaborators, signal-driven shutdown via context.WithCancel), with
// subcommand structure from Sumatoshi-tech-codefang's cobra root.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/HashimCodeDev/stve/cmd/stved/commands"
)

func main() {
	root := &cobra.Command{
		Use:   "stved",
		Short: "Sensor Trust Verification Engine daemon",
		Long: `stved scores the trustworthiness of soil sensor readings in real time.

Commands:
  serve        Run the HTTP API and WebSocket event stream
  ingest-file  Replay a JSON batch of readings through the ingest pipeline
  migrate      Initialize the sqlite schema at the configured path`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(commands.NewServeCommand())
	root.AddCommand(commands.NewIngestFileCommand())
	root.AddCommand(commands.NewMigrateCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
