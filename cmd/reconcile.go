package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"files-kraken/core/reconcile"
	"files-kraken/core/snapshot"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Flags for the reconcile command
	deletedPaths    []string
	dryRunReconcile bool
	yesConfirm      bool
)

// reconcileCmd reconciles an explicit batch of paths without scanning.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile [paths...]",
	Short: "Reconcile an explicit batch of created and deleted paths",
	Long: `Builds the plan for the given batch, prints it and applies it after confirmation.
Positional paths are reported as created; --deleted paths as deleted.
Relative paths resolve against the watch root.

Examples:
  # Show what a new file would change
  reconcile --dry-run run_1/run_1.sample_42.vcf

  # Forget a removed file without prompting
  reconcile --deleted run_1/run_1.sample_42.vcf --yes`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().StringSliceVar(&deletedPaths, "deleted", nil, "Paths to report as deleted")
	reconcileCmd.Flags().BoolVar(&dryRunReconcile, "dry-run", false, "Print the plan without applying it")
	reconcileCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm the writes (non-interactive)")

	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	changes := snapshot.Changes{Created: args, Deleted: deletedPaths}
	if changes.Empty() {
		return fmt.Errorf("no paths given")
	}

	a, err := bootstrap()
	if err != nil {
		return err
	}
	defer a.close()

	engine, err := a.engine()
	if err != nil {
		return err
	}

	// Step 1: Plan (always runs)
	plan, err := engine.Build(ctx, changes)
	if err != nil {
		return fmt.Errorf("failed to plan reconciliation: %w", err)
	}

	// Step 2: Print report
	printPlan(cmd.OutOrStdout(), plan, 0)

	if len(plan.Actions) == 0 {
		a.logger.Info("No writes required")
		return nil
	}
	if dryRunReconcile {
		a.logger.Info("Dry-run mode: No changes were made.")
		return nil
	}

	// Step 3: Apply (if confirmed)
	if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "write these records", yesConfirm) {
		a.logger.Warn("Operation cancelled by user. No changes were made.")
		return nil
	}
	executed, err := engine.Apply(ctx, plan, reconcile.Options{})
	if err != nil {
		return fmt.Errorf("failed to apply plan: %w", err)
	}
	a.logger.Info("Successfully executed actions", zap.Int("count", executed))
	return nil
}

// confirm prompts on out and reads the answer from in unless yes is set.
func confirm(in io.Reader, out io.Writer, action string, yes bool) bool {
	if yes {
		fmt.Fprintln(out, "\nAuto-confirmed via --yes flag")
		return true
	}

	fmt.Fprintf(out, "\nType 'yes' to %s: ", action)
	response, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && response == "" {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
