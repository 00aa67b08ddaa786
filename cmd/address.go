package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/tinoosan/journal/internal/address"
	"github.com/tinoosan/journal/internal/config"
	"github.com/tinoosan/journal/internal/record"
)

type addressOptions struct {
	Owner     string
	Title     string
	ProgramID string
}

// newAddressCommand prints the slot address for an (owner, title) pair.
func newAddressCommand() *cobra.Command {
	opts := &addressOptions{}
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Print the derived address of an entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, err := uuid.Parse(opts.Owner)
			if err != nil {
				return fmt.Errorf("invalid --owner: %w", err)
			}
			if err := record.ValidateTitle(opts.Title); err != nil {
				return err
			}
			programID := opts.ProgramID
			if programID == "" {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("config: %w", err)
				}
				programID = cfg.ProgramID
			}
			d, err := address.NewDeriver(programID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), d.Derive(opts.Title, owner))
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.Owner, "owner", "", "owner id (uuid)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "entry title")
	cmd.Flags().StringVar(&opts.ProgramID, "program-id", "", "program id (defaults to PROGRAM_ID)")
	_ = cmd.MarkFlagRequired("owner")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}
