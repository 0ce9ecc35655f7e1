package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"files-kraken/core/snapshot"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// watchCmd runs the monitor loop until interrupted.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the configured directory and reconcile records",
	Long: `Polls the watch root, collects files inside new directories and reconciles
every change batch into the document store. Stops on SIGINT/SIGTERM or when the
exit file is written.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap()
		if err != nil {
			return err
		}
		defer a.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		engine, err := a.engine()
		if err != nil {
			return err
		}
		mgr, err := a.monitor(ctx, func(ctx context.Context, changes snapshot.Changes) error {
			_, err := engine.Process(ctx, changes)
			return err
		})
		if err != nil {
			return err
		}

		if err := mgr.Run(ctx); err != nil {
			return err
		}
		a.logger.Info("Watcher stopped", zap.String("root", a.cfg.Watch.Root))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(watchCmd)
}
