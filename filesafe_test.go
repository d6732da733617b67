package filesafe

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFreeFunctionsRoundTrip(t *testing.T) {
	mgr := NewMemoryManager(WithStagingDir("/stage"))
	ctx, _, err := Begin(context.Background(), mgr)
	require.NoError(t, err)

	w, err := CreateFile(ctx, "/d/greeting", ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	exists, err := FileExists(ctx, "/d/greeting")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, Commit(ctx))

	r, err := mgr.Open("/d/greeting", ModeRead)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFreeFunctionsWithoutActiveTransaction(t *testing.T) {
	_, err := FileExists(context.Background(), "/d/anything")
	assert.ErrorIs(t, err, ErrNoActiveTransaction)
}

// TestFreeFunctionsLazilyConstructManager exercises spec §4.6's
// first-call path: a caller that begins a transaction without naming a
// Manager at all still gets working CreateFile/FileExists/Commit calls,
// because the ambient binding constructs and joins one on demand.
func TestFreeFunctionsLazilyConstructManager(t *testing.T) {
	root := t.TempDir()
	t.Setenv("FILESAFE_STAGING_DIR", filepath.Join(root, "stage"))

	ctx, _, err := BeginTransaction(context.Background())
	require.NoError(t, err)

	target := filepath.Join(root, "greeting")
	w, err := CreateFile(ctx, target, ModeWrite)
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	exists, err := FileExists(ctx, target)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, Commit(ctx))

	_, err = FileExists(ctx, target)
	assert.ErrorIs(t, err, ErrNoActiveTransaction, "the lazily-bound manager must be released once the transaction completes")
}

func TestRenameAndDeleteFreeFunctions(t *testing.T) {
	mgr := NewMemoryManager(WithStagingDir("/stage"))
	ctx, _, err := Begin(context.Background(), mgr)
	require.NoError(t, err)

	w, err := CreateFile(ctx, "/d/foo", ModeWrite)
	require.NoError(t, err)
	_, _ = w.Write([]byte("content"))
	require.NoError(t, w.Close())
	require.NoError(t, Commit(ctx))

	ctx2, _, err := Begin(context.Background(), mgr)
	require.NoError(t, err)
	require.NoError(t, RenameFile(ctx2, "/d/foo", "/d/bar", false))
	require.NoError(t, Commit(ctx2))

	ctx3, _, err := Begin(context.Background(), mgr)
	require.NoError(t, err)
	require.NoError(t, DeleteFile(ctx3, "/d/bar"))
	require.NoError(t, Commit(ctx3))

	exists, err := mgr.Exists("/d/bar")
	require.NoError(t, err)
	assert.False(t, exists)
}
