package coordinator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// TestPackageLeaks verifies no goroutine is left behind by a Begin that
// never reaches Commit or Abort via a hook.
func TestPackageLeaks(t *testing.T) {
	defer goleak.VerifyNone(t)

	c := NewInProcess()
	_, _, err := c.Begin(context.Background())
	require.NoError(t, err)
}

type fakeResource struct {
	key       string
	begun     bool
	voted     bool
	finished  bool
	aborted   bool
	commitErr error
	voteErr   error
}

func (r *fakeResource) SortKey() string                     { return r.key }
func (r *fakeResource) TPCBegin(ctx context.Context) error   { r.begun = true; return nil }
func (r *fakeResource) Commit(ctx context.Context) error     { return r.commitErr }
func (r *fakeResource) TPCVote(ctx context.Context) error    { r.voted = true; return r.voteErr }
func (r *fakeResource) TPCFinish(ctx context.Context) error  { r.finished = true; return nil }
func (r *fakeResource) TPCAbort(ctx context.Context) error   { r.aborted = true; return nil }

func TestInProcessCommitDrivesEveryResource(t *testing.T) {
	c := NewInProcess()
	ctx, tx, err := c.Begin(context.Background())
	require.NoError(t, err)

	r1 := &fakeResource{key: "b"}
	r2 := &fakeResource{key: "a"}
	require.NoError(t, c.Join(tx, r1))
	require.NoError(t, c.Join(tx, r2))

	require.NoError(t, c.Commit(ctx))

	for _, r := range []*fakeResource{r1, r2} {
		assert.True(t, r.begun)
		assert.True(t, r.voted)
		assert.True(t, r.finished)
		assert.False(t, r.aborted)
	}
}

func TestInProcessCommitFailureAbortsEveryResource(t *testing.T) {
	c := NewInProcess()
	ctx, tx, err := c.Begin(context.Background())
	require.NoError(t, err)

	ok := &fakeResource{key: "a"}
	failing := &fakeResource{key: "b", commitErr: errors.New("boom")}
	require.NoError(t, c.Join(tx, ok))
	require.NoError(t, c.Join(tx, failing))

	err = c.Commit(ctx)
	require.Error(t, err)

	assert.True(t, ok.aborted)
	assert.True(t, failing.aborted)
}

func TestInProcessAbort(t *testing.T) {
	c := NewInProcess()
	ctx, tx, err := c.Begin(context.Background())
	require.NoError(t, err)

	r := &fakeResource{key: "a"}
	require.NoError(t, c.Join(tx, r))

	require.NoError(t, c.Abort(ctx))
	assert.True(t, r.aborted)
}

func TestInProcessAfterCompletionHookFires(t *testing.T) {
	c := NewInProcess()
	ctx, tx, err := c.Begin(context.Background())
	require.NoError(t, err)

	var committed bool
	var called bool
	require.NoError(t, c.AfterCompletion(tx, func(c bool) { called = true; committed = c }))

	require.NoError(t, c.Commit(ctx))
	assert.True(t, called)
	assert.True(t, committed)
}

func TestInProcessOperationsAfterCompletionFail(t *testing.T) {
	c := NewInProcess()
	ctx, tx, err := c.Begin(context.Background())
	require.NoError(t, err)
	require.NoError(t, c.Commit(ctx))

	err = c.Commit(ctx)
	assert.ErrorIs(t, err, ErrNoActiveTransaction)

	err = c.Join(tx, &fakeResource{key: "a"})
	assert.ErrorIs(t, err, ErrNoActiveTransaction)
}
