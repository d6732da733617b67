package filesafe

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultUniqueness(t *testing.T) {
	v := newVault()

	require.NoError(t, v.put(&VaultEntry{Target: "/d/a", Kind: kindCreate}))

	err := v.put(&VaultEntry{Target: "/d/a", Kind: kindCreate})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAlreadyStaged)
}

func TestVaultDeletePendingIsReplaceable(t *testing.T) {
	v := newVault()

	require.NoError(t, v.put(&VaultEntry{Target: "/d/a", Kind: kindDeletePending}))
	require.NoError(t, v.put(&VaultEntry{Target: "/d/a", Kind: kindCreate}))

	entry, ok := v.get("/d/a")
	require.True(t, ok)
	assert.Equal(t, kindCreate, entry.Kind)
}

func TestVaultSnapshotIsStableAcrossClear(t *testing.T) {
	v := newVault()
	require.NoError(t, v.put(&VaultEntry{Target: "/d/a", Kind: kindCreate}))
	require.NoError(t, v.put(&VaultEntry{Target: "/d/b", Kind: kindCreate}))

	snap := v.snapshot()
	assert.Len(t, snap, 2)

	v.clear()
	assert.Equal(t, 0, v.len())
	assert.Len(t, snap, 2, "a previously taken snapshot must not be mutated by clear")
}

func TestEntryKindString(t *testing.T) {
	assert.Equal(t, "Create", kindCreate.String())
	assert.Equal(t, "Rename", kindRename.String())
	assert.Equal(t, "DeletePending", kindDeletePending.String())
}
