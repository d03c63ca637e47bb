package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/config"
	"github.com/benoitrobinson/OmnesImmobilier-sub000/internal/db"
)

// runOnce loads configuration, builds the app without Redis and runs fn.
func runOnce(cmd *cobra.Command, fn func(cmd *cobra.Command, a *app) error) error {
	cfg, err := config.Load("job")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	a, err := newApp(cfg, false)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(cmd, a)
}

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, func(cmd *cobra.Command, a *app) error {
				if err := db.Migrate(a.gdb); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date.")
				return nil
			})
		},
	}
}

// NewSyncCommand creates the sync command.
func NewSyncCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Reconcile agent availability with scheduled appointments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, func(cmd *cobra.Command, a *app) error {
				report, err := a.sync.BatchSync(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "synced=%d failed=%d removed=%d\n", report.Synced, report.Failed, report.Removed)
				return nil
			})
		},
	}
}

// NewRolloverCommand creates the rollover command.
func NewRolloverCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rollover",
		Short: "Mark past scheduled appointments as completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, func(cmd *cobra.Command, a *app) error {
				n, err := a.appointments.CompletePastDue(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "completed=%d\n", n)
				return nil
			})
		},
	}
}

// NewCloseExpiredCommand creates the close-expired command. Winners are not emailed
// since no task queue is attached.
func NewCloseExpiredCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "close-expired",
		Short: "End active auctions whose end date has passed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd, func(cmd *cobra.Command, a *app) error {
				n, err := a.auctions.CloseExpired(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "closed=%d\n", n)
				return nil
			})
		},
	}
}
