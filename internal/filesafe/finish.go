package filesafe

import "context"

// TPCFinish is called by the coordinator after every resource manager
// voted success. For each entry with a surviving backup it unlinks
// "<target>.filesafe"; everything else is a no-op (spec §4.3). Failures
// here are CleanupWarnings: logged and swallowed, because by this point
// the transaction has already committed and a stray backup file is a
// recoverable leak, not a reason to fail the transaction retroactively.
func (m *fsManager) TPCFinish(ctx context.Context) error {
	for _, entry := range m.vault.snapshot() {
		if entry.HasOriginal {
			if err := m.fs.Remove(backupPath(entry.Target)); err != nil {
				m.metrics.IncCleanupWarning()
				logCleanup(&cleanupWarning{target: entry.Target, op: "finish", err: err})
			} else {
				m.metrics.IncFinishSuccess()
			}
		}
		if entry.Kind == kindDeletePending {
			m.fs.Remove(deleteMarkerPath(entry.Target))
		}
		entry.state = stateCompleted
	}

	m.vault.clear()
	m.inCommit = false
	return nil
}
