// Package binding gives filesafe's front-end free functions ambient
// access to the Manager for the caller's current transaction, the way
// the original repoze.filesafe located its DataManager off a
// thread-local (spec §4.6). Go has no thread-locals, so the active
// transaction travels on the context.Context the caller already has to
// thread through for cancellation — and a sync.Map keyed by
// transaction ID backs it up for a context that carries the transaction
// but not the bound Manager (mirroring the teacher's
// sqlite_transaction_manager.go txKey fallback path).
package binding

import (
	"context"
	"sync"

	"github.com/yuzushioh/filesafe/internal/coordinator"
	"github.com/yuzushioh/filesafe/internal/filesafe"
)

type ctxKey struct{}

// byTxID is the fallback lookup, keyed by the ID of the transaction the
// Coordinator reports active for a context. It resolves a Manager for a
// context that carries the transaction but not the value Bind adds —
// e.g. the context the Coordinator's own Begin returned.
var byTxID sync.Map // map[string]filesafe.Manager

// lazyMu serialises the check-then-construct sequence in GetOrCreate so
// two calls racing against the same freshly-begun transaction cannot
// both construct and join a Manager.
var lazyMu sync.Mutex

// Bind associates mgr with tx and arranges for the association to be
// released once the coordinator reports the transaction complete. The
// returned context carries mgr for Get to find via ctx alone.
func Bind(ctx context.Context, co coordinator.Coordinator, tx coordinator.Transaction, mgr filesafe.Manager) context.Context {
	byTxID.Store(tx.ID(), mgr)

	_ = co.AfterCompletion(tx, func(committed bool) {
		byTxID.Delete(tx.ID())
	})

	return context.WithValue(ctx, ctxKey{}, mgr)
}

// Get returns the Manager bound to ctx. It checks the context value
// first, then falls back to byTxID using the Coordinator's notion of
// the active transaction for ctx — this lets a caller that only
// propagated a bare context.Background() still resolve a Manager as
// long as the Coordinator itself can find the active transaction.
func Get(ctx context.Context, co coordinator.Coordinator) (filesafe.Manager, bool) {
	if mgr, ok := ctx.Value(ctxKey{}).(filesafe.Manager); ok {
		return mgr, true
	}

	tx, ok := co.Active(ctx)
	if !ok {
		return nil, false
	}

	mgr, ok := byTxID.Load(tx.ID())
	if !ok {
		return nil, false
	}
	return mgr.(filesafe.Manager), true
}

// GetOrCreate returns the Manager bound to the transaction active on
// ctx, lazily constructing one via newManager on the first call that
// finds an active transaction with nothing bound yet (spec §4.6: "On
// first call from a thread that has no bound manager, construct a new
// manager, ask the transaction coordinator for the active transaction,
// register the manager as a resource, and register an after-commit/
// after-abort hook that clears the binding"). The returned bool is false
// only when ctx has no active transaction at all — the NoActiveTransaction
// fault the spec calls for.
func GetOrCreate(ctx context.Context, co coordinator.Coordinator, newManager func() filesafe.Manager) (filesafe.Manager, bool, error) {
	if mgr, ok := Get(ctx, co); ok {
		return mgr, true, nil
	}

	tx, ok := co.Active(ctx)
	if !ok {
		return nil, false, nil
	}

	lazyMu.Lock()
	defer lazyMu.Unlock()

	// Another goroutine may have constructed and bound one while we were
	// waiting for the lock.
	if mgr, ok := byTxID.Load(tx.ID()); ok {
		return mgr.(filesafe.Manager), true, nil
	}

	mgr := newManager()
	if err := co.Join(tx, mgr); err != nil {
		return nil, false, err
	}

	byTxID.Store(tx.ID(), mgr)
	_ = co.AfterCompletion(tx, func(committed bool) {
		byTxID.Delete(tx.ID())
	})

	return mgr, true, nil
}
