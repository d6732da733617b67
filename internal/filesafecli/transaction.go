package filesafecli

import (
	"context"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/yuzushioh/filesafe/internal/filesafe/config"

	"github.com/yuzushioh/filesafe"
)

// addStagingDirFlag adds the --staging-dir flag shared by every
// subcommand that opens its own transaction, matching
// FILESAFE_STAGING_DIR's precedence in the library itself (spec §6.4).
func addStagingDirFlag(cmd *cobra.Command, dest *string) {
	cmd.Flags().StringVar(dest, "staging-dir", "", "Staging directory (defaults to FILESAFE_STAGING_DIR or the OS temp dir)")
}

// withTransaction begins a transaction against a disk-backed Manager,
// runs fn, and commits on success or aborts on failure — the one-shot
// round a single CLI invocation drives (see filesafecli package doc).
func withTransaction(stagingDir string, fn func(ctx context.Context) error) error {
	opts := []filesafe.ManagerOption{filesafe.WithConfig(config.FromEnv())}
	if stagingDir != "" {
		opts = append(opts, filesafe.WithStagingDir(stagingDir))
	}
	mgr := filesafe.NewManager(opts...)

	ctx, _, err := filesafe.Begin(context.Background(), mgr)
	if err != nil {
		return err
	}

	if err := fn(ctx); err != nil {
		_ = filesafe.Abort(ctx)
		return err
	}

	return filesafe.Commit(ctx)
}

// osFs is the shared afero.Fs used by read-only commands (ls, recover)
// that do not need a transaction of their own.
var osFs afero.Fs = afero.NewOsFs()
