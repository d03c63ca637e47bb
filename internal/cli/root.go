package cli

import (
	"log"

	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command of the omnes binary.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "omnes",
		Short:         "Omnes Immobilier back-office",
		Long:          "Auction engine, appointment workflow and agent availability for the Omnes Immobilier back-office.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewMigrateCommand())
	cmd.AddCommand(NewSyncCommand())
	cmd.AddCommand(NewRolloverCommand())
	cmd.AddCommand(NewCloseExpiredCommand())

	return cmd
}

// Execute runs the root command, exiting on error.
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}
