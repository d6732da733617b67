// Package metrics provides lightweight in-process counters for the
// manager's commit/finish/abort/recovery paths, following the naming
// convention of the teacher's transaction metrics (txn.commit.success,
// txn.rollback.success, ...) without that package's disk-persisted
// metrics.json — there is no doctor/CLI counterpart in this spec to
// consume a persisted file, so the collector stays in-memory and is
// exposed for a host application (or the bundled CLI) to snapshot.
package metrics

import "sync/atomic"

// Named metrics, mirroring the dotted "txn.<phase>.<outcome>" convention.
const (
	CommitSuccess  = "filesafe.commit.success"
	CommitFailed   = "filesafe.commit.failed"
	FinishSuccess  = "filesafe.finish.success"
	AbortSuccess   = "filesafe.abort.success"
	CleanupWarning = "filesafe.cleanup.warning"
	RecoveryFound  = "filesafe.recovery.found"
	RecoveryRepair = "filesafe.recovery.repaired"
)

// Collector accumulates counters for one process. The zero value is
// ready to use.
type Collector struct {
	commitSuccess  int64
	commitFailed   int64
	finishSuccess  int64
	abortSuccess   int64
	cleanupWarning int64
	recoveryFound  int64
	recoveryRepair int64
}

// Global is the collector used by the package when no other Collector
// is wired in. Tests may construct their own Collector to avoid
// cross-test interference.
var Global = &Collector{}

func (c *Collector) IncCommitSuccess()  { atomic.AddInt64(&c.commitSuccess, 1) }
func (c *Collector) IncCommitFailed()   { atomic.AddInt64(&c.commitFailed, 1) }
func (c *Collector) IncFinishSuccess()  { atomic.AddInt64(&c.finishSuccess, 1) }
func (c *Collector) IncAbortSuccess()   { atomic.AddInt64(&c.abortSuccess, 1) }
func (c *Collector) IncCleanupWarning() { atomic.AddInt64(&c.cleanupWarning, 1) }
func (c *Collector) IncRecoveryFound()  { atomic.AddInt64(&c.recoveryFound, 1) }
func (c *Collector) IncRecoveryRepair() { atomic.AddInt64(&c.recoveryRepair, 1) }

// Snapshot is a point-in-time copy of every counter, safe to read
// without racing further increments.
type Snapshot struct {
	CommitSuccess  int64
	CommitFailed   int64
	FinishSuccess  int64
	AbortSuccess   int64
	CleanupWarning int64
	RecoveryFound  int64
	RecoveryRepair int64
}

func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		CommitSuccess:  atomic.LoadInt64(&c.commitSuccess),
		CommitFailed:   atomic.LoadInt64(&c.commitFailed),
		FinishSuccess:  atomic.LoadInt64(&c.finishSuccess),
		AbortSuccess:   atomic.LoadInt64(&c.abortSuccess),
		CleanupWarning: atomic.LoadInt64(&c.cleanupWarning),
		RecoveryFound:  atomic.LoadInt64(&c.recoveryFound),
		RecoveryRepair: atomic.LoadInt64(&c.recoveryRepair),
	}
}
