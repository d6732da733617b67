package filesafecli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/yuzushioh/filesafe/internal/filesafe/config"

	"github.com/yuzushioh/filesafe"
)

// Manifest is the YAML batch-mode input for apply, the same shape as
// register.go's RegisterSpec: a thin YAML struct decoded straight from
// the file the caller points at.
type Manifest struct {
	Operations []Operation `yaml:"operations"`
}

// Operation is one staged step. Exactly the fields relevant to Kind
// are read; the rest are ignored.
type Operation struct {
	Kind      string `yaml:"kind"` // put | rm | mv
	Source    string `yaml:"source,omitempty"`
	Target    string `yaml:"target,omitempty"`
	From      string `yaml:"from,omitempty"`
	Recursive bool   `yaml:"recursive,omitempty"`
}

// ApplyResult is the JSON summary printed to stdout, mirroring
// register.go's RegisterResult convention of a single JSON line.
type ApplyResult struct {
	OK        bool     `json:"ok"`
	Committed bool     `json:"committed"`
	Applied   []string `json:"applied"`
	Error     string   `json:"error,omitempty"`
}

func newApplyCommand() *cobra.Command {
	var stagingDir string
	var abortInstead bool

	cmd := &cobra.Command{
		Use:   "apply <manifest.yaml>",
		Short: "Apply a batch of operations from a YAML manifest in one 2PC round",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := loadManifest(args[0])
			if err != nil {
				return fail(cmd, err)
			}

			result := ApplyResult{Applied: []string{}}

			opts := []filesafe.ManagerOption{filesafe.WithConfig(config.FromEnv())}
			if stagingDir != "" {
				opts = append(opts, filesafe.WithStagingDir(stagingDir))
			}
			mgr := filesafe.NewManager(opts...)

			ctx, _, err := filesafe.Begin(context.Background(), mgr)
			if err != nil {
				return fail(cmd, err)
			}

			applyErr := applyManifest(ctx, manifest, &result)

			if applyErr == nil && !abortInstead {
				applyErr = filesafe.Commit(ctx)
				result.Committed = applyErr == nil
			} else {
				_ = filesafe.Abort(ctx)
				result.Committed = false
			}

			result.OK = applyErr == nil
			if applyErr != nil {
				result.Error = applyErr.Error()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			_ = enc.Encode(result)

			if applyErr != nil {
				return applyErr
			}
			return nil
		},
	}

	addStagingDirFlag(cmd, &stagingDir)
	cmd.Flags().BoolVar(&abortInstead, "abort", false, "Abort the round instead of committing, after staging every operation")
	return cmd
}

func applyManifest(ctx context.Context, manifest *Manifest, result *ApplyResult) error {
	for _, op := range manifest.Operations {
		switch op.Kind {
		case "put":
			if err := applyPut(ctx, op); err != nil {
				return fmt.Errorf("put %s: %w", op.Target, err)
			}
		case "rm":
			if err := filesafe.DeleteFile(ctx, op.Target); err != nil {
				return fmt.Errorf("rm %s: %w", op.Target, err)
			}
		case "mv":
			if err := filesafe.RenameFile(ctx, op.Source, op.Target, op.Recursive); err != nil {
				return fmt.Errorf("mv %s -> %s: %w", op.Source, op.Target, err)
			}
		default:
			return fmt.Errorf("unknown operation kind %q", op.Kind)
		}
		result.Applied = append(result.Applied, fmt.Sprintf("%s %s", op.Kind, op.Target))
	}
	return nil
}

func applyPut(ctx context.Context, op Operation) error {
	w, err := filesafe.CreateFile(ctx, op.Target, filesafe.ModeWrite)
	if err != nil {
		return err
	}
	if op.From != "" {
		src, err := os.Open(op.From)
		if err != nil {
			w.Close()
			return err
		}
		defer src.Close()
		if _, err := io.Copy(w, src); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

func loadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	return &m, nil
}
