package cmd

import (
	"fmt"

	"files-kraken/core/backup"
	"files-kraken/core/snapshot"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	backupFlat bool
	backupYes  bool
)

// backupCmd groups commands over stored watcher snapshots.
var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Inspect and remove watcher backups",
	Long: `Lists, prints and removes the snapshots watchers restore from on start.
Removing a backup makes the next scan report every existing path as created.`,
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored backups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackups(cmd, func(m *backup.Manager) error {
			names, err := m.Names(cmd.Context())
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		})
	},
}

var backupShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Print a backup as JSON, or as a path list with --flat",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackups(cmd, func(m *backup.Manager) error {
			node, err := m.Load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if backupFlat {
				for _, p := range snapshot.Flatten(node, true) {
					fmt.Fprintln(cmd.OutOrStdout(), p)
				}
				return nil
			}
			return printJSON(cmd, node)
		})
	},
}

var backupRemoveCmd = &cobra.Command{
	Use:   "remove [name]",
	Short: "Remove a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withBackups(cmd, func(m *backup.Manager) error {
			if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "remove "+args[0], backupYes) {
				return nil
			}
			return m.Remove(cmd.Context(), args[0])
		})
	},
}

// withBackups opens the configured backup store. The none backend is an error here.
func withBackups(cmd *cobra.Command, fn func(m *backup.Manager) error) error {
	cfg, logg, err := setup()
	if err != nil {
		return err
	}
	defer logg.Sync()

	store, err := backup.Open(cmd.Context(), cfg.Backup, cfg.Storage, logg)
	if err != nil {
		return fmt.Errorf("failed to open backup store: %w", err)
	}
	if store == nil {
		return fmt.Errorf("backups are disabled (backend %q)", cfg.Backup.Backend)
	}
	logg.Debug("Backup store opened", zap.String("backend", cfg.Backup.Backend))
	return fn(backup.NewManager(store, logg))
}

func init() {
	backupShowCmd.Flags().BoolVar(&backupFlat, "flat", false, "Print one path per line")
	backupRemoveCmd.Flags().BoolVar(&backupYes, "yes", false, "Remove without prompting")
	backupCmd.AddCommand(backupListCmd, backupShowCmd, backupRemoveCmd)
	RootCmd.AddCommand(backupCmd)
}
