// Package filesafecli implements the filesafe command-line front-end
// (spec §6, component C9): a small cobra tool for exercising the
// two-phase-commit protocol from a shell — staging a single operation
// and committing it immediately, applying a batch of operations from a
// YAML manifest, listing a directory with its .filesafe backups flagged, and
// recovering orphaned ".filesafe" backups after a crash. It mirrors the
// way cmd/deespec wires a thin main.go to an internal/interface/cli
// package built on cobra.
package filesafecli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuzushioh/filesafe/internal/filesafe/config"

	"github.com/yuzushioh/filesafe"
)

// NewRoot builds the filesafe root command.
func NewRoot() *cobra.Command {
	root := &cobra.Command{
		Use:   "filesafe",
		Short: "Transactional file operations backed by the filesafe two-phase-commit protocol",
		Long: "filesafe drives the same backup-then-rename commit protocol the filesafe\n" +
			"library uses internally, one shell invocation at a time: each single-\n" +
			"operation subcommand runs its own begin/commit round, while apply drives\n" +
			"a whole batch of operations from a manifest through one round.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			warnOrphanedBackups(cmd)
			return nil
		},
	}

	root.AddCommand(
		newPutCommand(),
		newRmCommand(),
		newMvCommand(),
		newLsCommand(),
		newApplyCommand(),
		newRecoverCommand(),
	)

	return root
}

// warnOrphanedBackups runs the startup recovery scan FILESAFE_RECOVERY_DIR/
// FILESAFE_DISABLE_RECOVERY configure (spec §6.4): when a recovery root is
// set and scanning isn't disabled, it reports any orphaned ".filesafe"
// backups left by a prior crash so an operator notices without having to
// remember to run `recover` themselves. It never repairs anything itself —
// that stays an explicit, operator-driven `recover --repair` — and a scan
// failure never blocks the command the user actually asked for.
func warnOrphanedBackups(cmd *cobra.Command) {
	cfg := config.FromEnv()
	if cfg.DisableRecovery() || cfg.RecoveryDir() == "" {
		return
	}

	orphans, err := filesafe.Scan(osFs, cfg.RecoveryDir())
	if err != nil || len(orphans) == 0 {
		return
	}

	for _, o := range orphans {
		fmt.Fprintf(cmd.ErrOrStderr(), "filesafe: startup scan found orphaned backup %s (run `filesafe recover %s` to resolve)\n", o.BackupPath, cfg.RecoveryDir())
	}
}

func fail(cmd *cobra.Command, err error) error {
	fmt.Fprintf(os.Stderr, "filesafe: %v\n", err)
	return err
}
