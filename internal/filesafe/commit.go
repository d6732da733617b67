package filesafe

import (
	"context"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/yuzushioh/filesafe/internal/filesafe/logging"
)

// TPCBegin is a no-op: there is nothing to validate before staging
// starts (spec §4.2).
func (m *fsManager) TPCBegin(ctx context.Context) error { return nil }

// TPCVote always votes success: the manager has no veto condition of
// its own beyond what Commit itself already enforces (spec §4.2).
func (m *fsManager) TPCVote(ctx context.Context) error { return nil }

// Commit applies the vault to the filesystem: it backs up originals,
// moves staged files and renamed sources into place, and stages
// deletions. On any failure it stops processing further entries and
// returns a *CommitError — the entries already moved are left exactly
// as they are (design note, spec §9: "the source leaves partially-moved
// state for the subsequent abort to clean up; it never tries to undo
// eagerly"). The coordinator is expected to call TPCAbort on failure.
func (m *fsManager) Commit(ctx context.Context) error {
	m.inCommit = true

	for _, entry := range m.vault.snapshot() {
		var err error
		switch entry.Kind {
		case kindDeletePending:
			err = m.commitDelete(entry)
		case kindCreate, kindRename:
			err = m.commitMove(entry)
		}
		if err != nil {
			m.metrics.IncCommitFailed()
			return err
		}
	}

	m.metrics.IncCommitSuccess()
	return nil
}

func (m *fsManager) commitDelete(entry *VaultEntry) error {
	// Written before the rename so a backup found by Scan after a crash
	// can be identified as a delete's, not a create/rename's preserved
	// original — see deleteMarkerSuffix's doc comment in backup.go.
	if err := afero.WriteFile(m.fs, deleteMarkerPath(entry.Target), nil, 0o644); err != nil {
		return &CommitError{Target: entry.Target, Err: err}
	}

	if err := m.fs.Rename(entry.Target, backupPath(entry.Target)); err != nil {
		m.fs.Remove(deleteMarkerPath(entry.Target))
		return &CommitError{Target: entry.Target, Err: err}
	}
	if err := m.maybeFsyncParent(entry.Target); err != nil {
		return err
	}
	entry.HasOriginal = true
	entry.Moved = true
	entry.state = stateMoved
	return nil
}

func (m *fsManager) commitMove(entry *VaultEntry) error {
	target := entry.Target

	exists, err := existsOnFs(m.fs, target)
	if err != nil {
		return &CommitError{Target: target, Err: err}
	}

	if exists {
		if err := m.preserveOriginal(target); err != nil {
			return &CommitError{Target: target, Err: err}
		}
		entry.HasOriginal = true
	} else {
		entry.HasOriginal = false
	}

	source := entry.StagedPath
	if entry.Kind == kindRename {
		source = entry.SourcePath
	}

	if err := m.ensureParent(entry, target); err != nil {
		return &CommitError{Target: target, Err: err}
	}

	if err := m.fs.Rename(source, target); err != nil {
		return &CommitError{Target: target, Err: err}
	}
	if err := m.maybeFsyncParent(target); err != nil {
		return err
	}

	if entry.Kind == kindRename && entry.Recursive {
		removeEmptyParents(m.fs, parentDir(entry.SourcePath))
	}

	entry.Moved = true
	entry.state = stateMoved
	return nil
}

// ensureParent creates target's parent directory. For a Rename entry
// this only happens when Recursive is set, matching os.Rename's normal
// requirement that the destination directory already exist (spec §4.2:
// "recursive selects whether missing intermediate parents of target are
// to be created"). Create entries always get their parent created,
// since nothing in the spec gates Create's directory creation behind a
// flag.
func (m *fsManager) ensureParent(entry *VaultEntry, target string) error {
	if entry.Kind == kindRename && !entry.Recursive {
		return nil
	}
	return m.fs.MkdirAll(parentDir(target), 0o755)
}

func existsOnFs(fs afero.Fs, target string) (bool, error) {
	return afero.Exists(fs, target)
}

func parentDir(p string) string { return filepath.Dir(p) }

// removeEmptyParents walks up from dir removing directories while they
// are empty, so a recursive rename does not leave a trail of now-empty
// intermediate directories behind (spec §4.2: "recursive ... auto-
// removes emptied source parents"). It stops at the first non-empty
// directory, the first removal error, or after a bounded number of
// levels — it must never chase all the way up to the filesystem root.
func removeEmptyParents(fs afero.Fs, dir string) {
	const maxLevels = 32
	for i := 0; i < maxLevels; i++ {
		entries, err := afero.ReadDir(fs, dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := fs.Remove(dir); err != nil {
			return
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return
		}
		dir = parent
	}
}

func logCleanup(w *cleanupWarning) {
	logging.Get().Warn(w.op, w.target, w.err)
}
