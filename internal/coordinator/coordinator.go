// Package coordinator implements the external two-phase-commit
// orchestrator contract filesafe's Manager is designed to be driven by
// (spec §6.1), plus a minimal in-process implementation so the package
// is usable end-to-end without an external 2PC framework. It plays the
// role the teacher's internal/infrastructure/transaction package plays
// for a SQL database: something the domain registers a resource with
// and that drives begin/commit/vote/finish/abort across every
// participant.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// ErrNoActiveTransaction is returned by Commit, Abort, Join, and
// AfterCompletion when called with a context or Transaction the
// Coordinator has no record of — either none was ever begun, or it
// already completed.
var ErrNoActiveTransaction = errors.New("coordinator: no active transaction")

// Resource is the participant surface a Coordinator drives. filesafe's
// Manager satisfies this directly.
type Resource interface {
	SortKey() string
	TPCBegin(ctx context.Context) error
	Commit(ctx context.Context) error
	TPCVote(ctx context.Context) error
	TPCFinish(ctx context.Context) error
	TPCAbort(ctx context.Context) error
}

// Transaction is the handle a Coordinator hands back from Begin. Its
// ID is what ambient binding (internal/binding) keys a bound Manager by.
type Transaction interface {
	ID() string
}

// Coordinator is the contract filesafe's ambient binding (§4.6) and
// front-end consume: find the active transaction for a context, join a
// resource to it, and register completion hooks.
type Coordinator interface {
	Begin(ctx context.Context) (context.Context, Transaction, error)
	Active(ctx context.Context) (Transaction, bool)
	Join(tx Transaction, r Resource) error
	AfterCompletion(tx Transaction, hook func(committed bool)) error
	Commit(ctx context.Context) error
	Abort(ctx context.Context) error
}

type ctxKey struct{}

type txn struct {
	id        string
	mu        sync.Mutex
	resources []Resource
	hooks     []func(committed bool)
	done      bool
}

func (t *txn) ID() string { return t.id }

// InProcess is a single-process Coordinator: every resource it drives
// lives in the same Go process, so "begin", "commit", "vote", "finish",
// and "abort" are plain synchronous calls rather than messages to an
// external arbiter. It still honors the coordinator contract's ordering
// (begin → commit → vote → finish|abort, spec §9 open question: the
// source calls commit before vote, and this is preserved deliberately)
// and the SortKey-based ordering of resource callbacks (spec §6.1).
type InProcess struct {
	mu   sync.Mutex
	byID map[string]*txn
}

// NewInProcess creates a Coordinator usable by a single process with no
// external 2PC arbiter.
func NewInProcess() *InProcess {
	return &InProcess{byID: make(map[string]*txn)}
}

// Begin starts a new logical transaction and returns a context carrying
// it. Every filesafe front-end call must be made with a context
// descended from the one Begin returns (or ErrNoActiveTransaction).
func (c *InProcess) Begin(ctx context.Context) (context.Context, Transaction, error) {
	// Unlike the staging filenames minted inside the manager, a
	// transaction handle has no crash-time ordering to preserve — it is
	// just an opaque token the coordinator and ambient binding use to
	// find each other, so uuid (not ulid) is the right ID scheme here.
	t := &txn{id: uuid.New().String()}

	c.mu.Lock()
	c.byID[t.id] = t
	c.mu.Unlock()

	return context.WithValue(ctx, ctxKey{}, t), t, nil
}

// Active returns the transaction bound to ctx, if any.
func (c *InProcess) Active(ctx context.Context) (Transaction, bool) {
	t, ok := ctx.Value(ctxKey{}).(*txn)
	return t, ok
}

// Join registers r as a participant of tx's eventual commit/abort.
func (c *InProcess) Join(tx Transaction, r Resource) error {
	t, err := c.lookup(tx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resources = append(t.resources, r)
	return nil
}

// AfterCompletion registers hook to run once tx reaches Commit or
// Abort. This is how ambient binding (internal/binding) releases a
// Manager once the coordinator has finished driving it (spec §4.6).
func (c *InProcess) AfterCompletion(tx Transaction, hook func(committed bool)) error {
	t, err := c.lookup(tx)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.hooks = append(t.hooks, hook)
	return nil
}

// Commit drives begin → commit → vote → finish across every joined
// resource, sorted by SortKey for deterministic ordering (spec §6.1). If
// any resource's Commit fails, every resource (including ones already
// committed) is driven through TPCAbort instead, and the error from the
// failing resource is returned.
func (c *InProcess) Commit(ctx context.Context) error {
	t, err := c.activeTxn(ctx)
	if err != nil {
		return err
	}

	resources := t.sortedResources()

	for _, r := range resources {
		if err := r.TPCBegin(ctx); err != nil {
			c.abortAll(ctx, t, resources)
			return fmt.Errorf("coordinator: begin failed: %w", err)
		}
	}

	var commitErr error
	for _, r := range resources {
		if err := r.Commit(ctx); err != nil {
			commitErr = fmt.Errorf("coordinator: commit failed: %w", err)
			break
		}
	}
	if commitErr != nil {
		c.abortAll(ctx, t, resources)
		return commitErr
	}

	for _, r := range resources {
		if err := r.TPCVote(ctx); err != nil {
			c.abortAll(ctx, t, resources)
			return fmt.Errorf("coordinator: vote failed: %w", err)
		}
	}

	for _, r := range resources {
		if err := r.TPCFinish(ctx); err != nil {
			// Finish failures are cleanup warnings by contract (spec
			// §7); the transaction is already committed.
			continue
		}
	}

	c.complete(t, true)
	return nil
}

// Abort drives TPCAbort across every joined resource. It is valid to
// call at any point before Commit has finished finishing (spec §5:
// "Abort may be initiated at any time before the coordinator calls
// finish").
func (c *InProcess) Abort(ctx context.Context) error {
	t, err := c.activeTxn(ctx)
	if err != nil {
		return err
	}
	c.abortAll(ctx, t, t.sortedResources())
	c.complete(t, false)
	return nil
}

func (c *InProcess) abortAll(ctx context.Context, t *txn, resources []Resource) {
	for _, r := range resources {
		_ = r.TPCAbort(ctx)
	}
}

func (c *InProcess) complete(t *txn, committed bool) {
	t.mu.Lock()
	hooks := t.hooks
	t.done = true
	t.mu.Unlock()

	for _, hook := range hooks {
		hook(committed)
	}

	c.mu.Lock()
	delete(c.byID, t.id)
	c.mu.Unlock()
}

func (t *txn) sortedResources() []Resource {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Resource, len(t.resources))
	copy(out, t.resources)
	sort.SliceStable(out, func(i, j int) bool { return out[i].SortKey() < out[j].SortKey() })
	return out
}

func (c *InProcess) activeTxn(ctx context.Context) (*txn, error) {
	tx, ok := c.Active(ctx)
	if !ok {
		return nil, ErrNoActiveTransaction
	}
	return c.lookup(tx)
}

func (c *InProcess) lookup(tx Transaction) (*txn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.byID[tx.ID()]
	if !ok {
		return nil, ErrNoActiveTransaction
	}
	return t, nil
}
