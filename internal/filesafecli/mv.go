package filesafecli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuzushioh/filesafe"
)

func newMvCommand() *cobra.Command {
	var stagingDir string
	var recursive bool

	cmd := &cobra.Command{
		Use:   "mv <source> <target>",
		Short: "Stage and commit a rename of source to target in a single round",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, target := args[0], args[1]

			err := withTransaction(stagingDir, func(ctx context.Context) error {
				return filesafe.RenameFile(ctx, source, target, recursive)
			})
			if err != nil {
				return fail(cmd, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "mv %s -> %s\n", source, target)
			return nil
		},
	}

	addStagingDirFlag(cmd, &stagingDir)
	cmd.Flags().BoolVar(&recursive, "recursive", false, "Create missing parents of target and remove emptied parents of source")
	return cmd
}
