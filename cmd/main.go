package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCommand builds journald; with no subcommand it serves HTTP.
func newRootCommand() *cobra.Command {
	serve := newServeCommand()
	cmd := &cobra.Command{
		Use:           "journald",
		Short:         "journald - journal entry record store",
		Long:          "Stores journal entries keyed by title and owner at addresses derived from that key.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          serve.RunE,
	}
	cmd.AddCommand(serve)
	cmd.AddCommand(newAddressCommand())
	return cmd
}
