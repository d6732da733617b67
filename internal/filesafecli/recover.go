package filesafecli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuzushioh/filesafe"
)

func newRecoverCommand() *cobra.Command {
	var repair bool

	cmd := &cobra.Command{
		Use:   "recover <dir>",
		Short: "Scan dir for orphaned .filesafe backups left by an interrupted commit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := args[0]

			orphans, err := filesafe.Scan(osFs, dir)
			if err != nil {
				return fail(cmd, err)
			}

			if len(orphans) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no orphaned backups found")
				return nil
			}

			for _, o := range orphans {
				status := "target missing, backup will be restored"
				switch {
				case o.DeleteInProgress:
					status = "delete already committed, backup will be discarded"
				case o.TargetExists:
					status = "target present, backup will be discarded"
				}
				if !repair {
					fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", o.BackupPath, status)
					continue
				}
				if err := filesafe.Repair(osFs, o); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "filesafe: repair %s: %v\n", o.BackupPath, err)
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: repaired (%s)\n", o.BackupPath, status)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&repair, "repair", false, "Actually repair, instead of only reporting, found orphans")
	return cmd
}
