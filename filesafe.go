// Package filesafe gives callers a handful of free functions —
// CreateFile, RenameFile, OpenFile, DeleteFile, FileExists — that
// operate on whatever Manager is bound to the calling transaction
// (spec §6.2), without requiring the caller to thread a Manager value
// through every call site. A transaction is started with Begin, which
// both registers the Manager as a 2PC participant with the package's
// default Coordinator and binds it ambiently to the returned context
// (spec §4.6).
//
// The underlying protocol — vault bookkeeping, staging, backup,
// commit, finish, abort, recovery — lives in internal/filesafe; this
// package is the thin public seam, the same role spec.md's §6
// "front-end free functions" play over its manager module.
package filesafe

import (
	"context"
	"errors"

	"github.com/yuzushioh/filesafe/internal/binding"
	"github.com/yuzushioh/filesafe/internal/coordinator"
	fscore "github.com/yuzushioh/filesafe/internal/filesafe"
	"github.com/yuzushioh/filesafe/internal/filesafe/config"
)

// Re-exported types so callers never need to import internal/filesafe
// directly.
type (
	Manager       = fscore.Manager
	WriteHandle   = fscore.WriteHandle
	ReadHandle    = fscore.ReadHandle
	OpenMode      = fscore.OpenMode
	ManagerOption = fscore.ManagerOption

	OrphanedBackup = fscore.OrphanedBackup

	PreconditionError = fscore.PreconditionError
	StagingIOError    = fscore.StagingIOError
	CommitError       = fscore.CommitError
)

const (
	ModeRead   = fscore.ModeRead
	ModeWrite  = fscore.ModeWrite
	ModeAppend = fscore.ModeAppend
)

// Sentinel errors re-exported for errors.Is against this package's
// free functions (spec §7).
var (
	ErrAlreadyStaged       = fscore.ErrAlreadyStaged
	ErrNotFound            = fscore.ErrNotFound
	ErrNoActiveTransaction = fscore.ErrNoActiveTransaction
)

// NewManager and NewMemoryManager re-export internal/filesafe's
// constructors: the real, OS-backed manager and the in-memory test
// double, both satisfying Manager (spec §4.7).
var (
	NewManager       = fscore.NewManager
	NewMemoryManager = fscore.NewMemoryManager
	WithStagingDir   = fscore.WithStagingDir
	WithConfig       = fscore.WithConfig
	WithMetrics      = fscore.WithMetrics
)

// Scan and Repair re-export the startup recovery scanner (spec §6.3).
var (
	Scan   = fscore.Scan
	Repair = fscore.Repair
)

// defaultCoordinator drives every transaction Begin starts. It is a
// package-level coordinator.InProcess rather than something callers
// construct, since a single process only ever needs one arbiter for
// its own in-process resources (spec §6.1).
var defaultCoordinator = coordinator.NewInProcess()

// Begin starts a transaction, joins mgr to it as the sole 2PC
// participant, and binds mgr ambiently to the returned context. Every
// call to CreateFile/RenameFile/OpenFile/DeleteFile/FileExists made
// with a context descended from the one Begin returns operates on mgr.
func Begin(ctx context.Context, mgr Manager) (context.Context, coordinator.Transaction, error) {
	ctx, tx, err := defaultCoordinator.Begin(ctx)
	if err != nil {
		return ctx, nil, err
	}
	if err := defaultCoordinator.Join(tx, mgr); err != nil {
		return ctx, nil, err
	}
	return binding.Bind(ctx, defaultCoordinator, tx, mgr), tx, nil
}

// BeginTransaction starts a transaction without binding any Manager to
// it. The first front-end call made against the returned context (or
// any context carrying the same transaction) lazily constructs a
// default, environment-configured Manager, joins it as the transaction's
// 2PC participant, and binds it — spec §4.6's "on first call from a
// thread that has no bound manager, construct a new manager" path, for
// callers who never want to name a Manager explicitly.
func BeginTransaction(ctx context.Context) (context.Context, coordinator.Transaction, error) {
	return defaultCoordinator.Begin(ctx)
}

// newDefaultManager is the Manager the ambient binding lazily constructs
// for a transaction nothing has joined a Manager to yet: a disk-backed
// manager configured the same way as any other environment-driven
// caller (spec §6.4).
func newDefaultManager() Manager {
	return fscore.NewManager(fscore.WithConfig(config.FromEnv()))
}

// Commit drives the active transaction for ctx through prepare, vote,
// and finish across every joined resource.
func Commit(ctx context.Context) error {
	return defaultCoordinator.Commit(ctx)
}

// Abort drives the active transaction for ctx through rollback across
// every joined resource.
func Abort(ctx context.Context) error {
	return defaultCoordinator.Abort(ctx)
}

func managerFor(ctx context.Context) (Manager, error) {
	mgr, ok, err := binding.GetOrCreate(ctx, defaultCoordinator, newDefaultManager)
	if errors.Is(err, coordinator.ErrNoActiveTransaction) {
		// ctx still names a transaction the coordinator has already completed.
		ok, err = false, nil
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &PreconditionError{Err: ErrNoActiveTransaction}
	}
	return mgr, nil
}

// CreateFile stages new content for target under the transaction bound
// to ctx (spec §4.1, §6.2).
func CreateFile(ctx context.Context, target string, mode OpenMode) (WriteHandle, error) {
	mgr, err := managerFor(ctx)
	if err != nil {
		return nil, err
	}
	return mgr.Create(target, mode)
}

// RenameFile stages a move of source to target under the transaction
// bound to ctx. recursive selects whether missing intermediate parents
// of target are created at commit, and whether emptied parents of
// source are removed (spec §4.1, §6.2).
func RenameFile(ctx context.Context, source, target string, recursive bool) error {
	mgr, err := managerFor(ctx)
	if err != nil {
		return err
	}
	return mgr.Rename(source, target, recursive)
}

// DeleteFile stages target for removal under the transaction bound to
// ctx (spec §4.1, §6.2).
func DeleteFile(ctx context.Context, target string) error {
	mgr, err := managerFor(ctx)
	if err != nil {
		return err
	}
	return mgr.Delete(target)
}

// OpenFile opens target for reading, transparently returning staged
// content that has not yet been committed (spec §4.1, §6.2).
func OpenFile(ctx context.Context, target string, mode OpenMode) (ReadHandle, error) {
	mgr, err := managerFor(ctx)
	if err != nil {
		return nil, err
	}
	return mgr.Open(target, mode)
}

// FileExists reports whether target is visible to the transaction
// bound to ctx, accounting for staged but uncommitted changes (spec
// §4.1, §6.2).
func FileExists(ctx context.Context, target string) (bool, error) {
	mgr, err := managerFor(ctx)
	if err != nil {
		return false, err
	}
	return mgr.Exists(target)
}
