package filesafe

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backend names one of the two Manager constructors under test: every
// scenario below runs against both, proving the real and in-memory
// managers behave identically (spec §4.7, §8). path translates one of
// spec.md's illustrative absolute paths ("/d/greeting") into whatever
// this backend actually roots its files under — the memory backend is
// fully virtual so the path is used verbatim, the disk backend roots
// everything under a throwaway t.TempDir() so the test never touches
// the real filesystem's "/d".
type backend struct {
	name string
	new  func(t *testing.T) (mgr Manager, path func(string) string)
}

func backends() []backend {
	return []backend{
		{
			name: "disk",
			new: func(t *testing.T) (Manager, func(string) string) {
				root := t.TempDir()
				staging := t.TempDir()
				return NewManager(WithStagingDir(staging)), func(p string) string {
					return filepath.Join(root, p)
				}
			},
		},
		{
			name: "memory",
			new: func(t *testing.T) (Manager, func(string) string) {
				return NewMemoryManager(WithStagingDir("/stage")), func(p string) string { return p }
			},
		},
	}
}

func readAll(t *testing.T, mgr Manager, target string) string {
	t.Helper()
	r, err := mgr.Open(target, ModeRead)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(data)
}

func writeContent(t *testing.T, mgr Manager, target, content string) {
	t.Helper()
	w, err := mgr.Create(target, ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
}

// seedFile creates target with content directly against the manager's
// backing filesystem, bypassing the vault, the way a pre-existing file
// would exist before a transaction ever began.
func seedFile(t *testing.T, mgr Manager, target, content string) {
	t.Helper()
	m := mgr.(*fsManager)
	require.NoError(t, m.fs.MkdirAll(parentDir(target), 0o755))
	f, err := m.fs.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	require.NoError(t, err)
	_, err = f.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestScenarios(t *testing.T) {
	ctx := context.Background()

	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			t.Run("S1_new_file_commit", func(t *testing.T) {
				mgr, path := b.new(t)
				greeting := path("/d/greeting")
				writeContent(t, mgr, greeting, "Hello, World!")

				require.NoError(t, mgr.Commit(ctx))
				require.NoError(t, mgr.TPCFinish(ctx))

				assert.Equal(t, "Hello, World!", readAll(t, mgr, greeting))
				exists, err := mgr.Exists(greeting + ".filesafe")
				require.NoError(t, err)
				assert.False(t, exists)
			})

			t.Run("S2_overwrite_with_abort", func(t *testing.T) {
				mgr, path := b.new(t)
				g := path("/d/g")
				seedFile(t, mgr, g, "...---...")
				writeContent(t, mgr, g, "new")

				require.NoError(t, mgr.Commit(ctx))
				require.NoError(t, mgr.TPCAbort(ctx))

				assert.Equal(t, "...---...", readAll(t, mgr, g))
				exists, err := mgr.Exists(g + ".filesafe")
				require.NoError(t, err)
				assert.False(t, exists)
			})

			t.Run("S3_rename_with_commit", func(t *testing.T) {
				mgr, path := b.new(t)
				foo, bar := path("/d/foo"), path("/d/bar")
				seedFile(t, mgr, foo, "...---...")
				require.NoError(t, mgr.Rename(foo, bar, false))

				require.NoError(t, mgr.Commit(ctx))
				require.NoError(t, mgr.TPCFinish(ctx))

				exists, err := mgr.Exists(foo)
				require.NoError(t, err)
				assert.False(t, exists)
				assert.Equal(t, "...---...", readAll(t, mgr, bar))
			})

			t.Run("S4_rename_with_abort", func(t *testing.T) {
				mgr, path := b.new(t)
				foo, bar := path("/d/foo"), path("/d/bar")
				seedFile(t, mgr, foo, "...---...")
				require.NoError(t, mgr.Rename(foo, bar, false))

				require.NoError(t, mgr.Commit(ctx))
				require.NoError(t, mgr.TPCAbort(ctx))

				assert.Equal(t, "...---...", readAll(t, mgr, foo))
				exists, err := mgr.Exists(bar)
				require.NoError(t, err)
				assert.False(t, exists)
			})

			t.Run("S5_delete_and_recreate_committed", func(t *testing.T) {
				mgr, path := b.new(t)
				g := path("/d/g")
				seedFile(t, mgr, g, "a")

				require.NoError(t, mgr.Delete(g))
				writeContent(t, mgr, g, "b")

				require.NoError(t, mgr.Commit(ctx))
				require.NoError(t, mgr.TPCFinish(ctx))

				assert.Equal(t, "b", readAll(t, mgr, g))
			})

			t.Run("S6_double_create_rejected", func(t *testing.T) {
				mgr, path := b.new(t)
				target := path("/d/t")

				_, err := mgr.Create(target, ModeWrite)
				require.NoError(t, err)

				_, err = mgr.Create(target, ModeWrite)
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrAlreadyStaged)

				// The first staged file is still readable until abort.
				content := readAll(t, mgr, target)
				assert.Equal(t, "", content)

				require.NoError(t, mgr.TPCAbort(ctx))
			})
		})
	}
}

func TestIsolationWithinTransaction(t *testing.T) {
	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			mgr, path := b.new(t)
			target := path("/d/x")
			writeContent(t, mgr, target, "staged content")

			assert.Equal(t, "staged content", readAll(t, mgr, target))
		})
	}
}

func TestIdempotentCleanup(t *testing.T) {
	for _, b := range backends() {
		b := b
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			mgr, path := b.new(t)
			g := path("/d/g")
			seedFile(t, mgr, g, "original")
			writeContent(t, mgr, g, "updated")

			require.NoError(t, mgr.Commit(ctx))

			// Externally remove the backup before Finish runs.
			m := mgr.(*fsManager)
			_ = m.fs.Remove(g + ".filesafe")

			require.NoError(t, mgr.TPCFinish(ctx))
			assert.Equal(t, "updated", readAll(t, mgr, g))
		})
	}
}
