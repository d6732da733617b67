package filesafe

import "context"

// TPCAbort restores every entry that reached Moved and discards every
// entry that did not, tolerating a filesystem already partially
// repaired by a previous attempt (spec §4.4). tpc_abort and abort are
// the same operation — the coordinator may call either pre- or
// post-prepare, and the per-entry Moved flag makes the distinction
// unnecessary (spec §4.4, §4.5).
func (m *fsManager) TPCAbort(ctx context.Context) error {
	for _, entry := range m.vault.snapshot() {
		if entry.Moved {
			m.restoreEntry(entry)
		} else {
			m.discardEntry(entry)
		}
	}

	m.vault.clear()
	m.inCommit = false
	return nil
}

func (m *fsManager) restoreEntry(entry *VaultEntry) {
	target := entry.Target

	switch {
	case entry.HasOriginal:
		if err := m.fs.Rename(backupPath(target), target); err != nil {
			m.metrics.IncCleanupWarning()
			logCleanup(&cleanupWarning{target: target, op: "abort-restore", err: err})
			return
		}
		if entry.Kind == kindDeletePending {
			m.fs.Remove(deleteMarkerPath(target))
		}
	case entry.Kind == kindRename:
		if entry.Recursive {
			if err := m.fs.MkdirAll(parentDir(entry.SourcePath), 0o755); err != nil {
				m.metrics.IncCleanupWarning()
				logCleanup(&cleanupWarning{target: target, op: "abort-restore-mkdir", err: err})
			}
		}
		if err := m.fs.Rename(target, entry.SourcePath); err != nil {
			m.metrics.IncCleanupWarning()
			logCleanup(&cleanupWarning{target: target, op: "abort-restore-rename", err: err})
			return
		}
	default: // kindCreate with no original
		if err := m.fs.Remove(target); err != nil {
			m.metrics.IncCleanupWarning()
			logCleanup(&cleanupWarning{target: target, op: "abort-remove", err: err})
			return
		}
	}

	entry.state = stateRestored
	m.metrics.IncAbortSuccess()
}

// discardEntry handles entries that never reached Moved. Only Create
// entries have a staged file to unlink; a Rename entry that never
// reached Moved leaves its source untouched (spec §4.4: "For Rename
// entries that never reached moved, no action is needed"), and a
// DeletePending entry that never reached Moved must NOT touch the
// original at all — it was never staged, so there is nothing to
// discard. This intentionally departs from the literal original Python,
// which unconditionally unlinks vault[target]["tempfile"] in this
// branch; for an un-moved DeletePending entry that value aliases the
// pristine original file, and unlinking it would destroy a file the
// commit loop never touched. See DESIGN.md.
func (m *fsManager) discardEntry(entry *VaultEntry) {
	if entry.Kind != kindCreate {
		entry.state = stateDiscarded
		return
	}

	if err := m.fs.Remove(entry.StagedPath); err != nil {
		m.metrics.IncCleanupWarning()
		logCleanup(&cleanupWarning{target: entry.Target, op: "abort-discard", err: err})
	}
	entry.state = stateDiscarded
}
