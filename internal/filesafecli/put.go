package filesafecli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/yuzushioh/filesafe"
)

func newPutCommand() *cobra.Command {
	var stagingDir string
	var from string

	cmd := &cobra.Command{
		Use:   "put <target>",
		Short: "Stage and commit new content for target in a single round",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := args[0]

			var src io.Reader = cmd.InOrStdin()
			if from != "" {
				f, err := os.Open(from)
				if err != nil {
					return fail(cmd, err)
				}
				defer f.Close()
				src = f
			}

			err := withTransaction(stagingDir, func(ctx context.Context) error {
				w, err := filesafe.CreateFile(ctx, target, filesafe.ModeWrite)
				if err != nil {
					return err
				}
				if _, err := io.Copy(w, src); err != nil {
					w.Close()
					return err
				}
				return w.Close()
			})
			if err != nil {
				return fail(cmd, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "put %s\n", target)
			return nil
		},
	}

	addStagingDirFlag(cmd, &stagingDir)
	cmd.Flags().StringVar(&from, "from", "", "Read content from this file instead of stdin")
	return cmd
}
