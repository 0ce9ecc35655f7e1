package cmd

import (
	"context"
	"errors"

	"files-kraken/core/snapshot"

	"github.com/spf13/cobra"
)

var scanDryRun bool

// errDryRun rejects the batch so the watcher state and backups stay untouched.
var errDryRun = errors.New("dry run")

// scanCmd runs a single monitor cycle.
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan of the watch root and print the changes",
	Long: `Runs a single monitor cycle against the stored backups, prints the changes found
and reconciles them. With --dry-run the changes and the planned writes are printed
but nothing is written and the backups are left as they were.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		engine, err := a.engine()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()

		mgr, err := a.monitor(cmd.Context(), func(ctx context.Context, changes snapshot.Changes) error {
			printChanges(out, changes)
			if scanDryRun {
				plan, err := engine.Build(ctx, changes)
				if err != nil {
					return err
				}
				printPlan(out, plan, 20)
				return errDryRun
			}
			plan, err := engine.Process(ctx, changes)
			if err != nil {
				return err
			}
			printPlan(out, plan, 20)
			return nil
		})
		if err != nil {
			return err
		}
		if err := mgr.RunOnce(cmd.Context()); err != nil && !errors.Is(err, errDryRun) {
			return err
		}
		return nil
	},
}

func init() {
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "Print the planned writes without applying them")
	RootCmd.AddCommand(scanCmd)
}
