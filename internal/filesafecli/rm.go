package filesafecli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuzushioh/filesafe"
)

func newRmCommand() *cobra.Command {
	var stagingDir string

	cmd := &cobra.Command{
		Use:   "rm <target>",
		Short: "Stage and commit a deletion of target in a single round",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			err := withTransaction(stagingDir, func(ctx context.Context) error {
				return filesafe.DeleteFile(ctx, target)
			})
			if err != nil {
				return fail(cmd, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "rm %s\n", target)
			return nil
		},
	}

	addStagingDirFlag(cmd, &stagingDir)
	return cmd
}
