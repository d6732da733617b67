package filesafe

import (
	"io/fs"
	"strings"

	"github.com/spf13/afero"

	"github.com/yuzushioh/filesafe/internal/filesafe/metrics"
)

// OrphanedBackup describes a ".filesafe" file found by Scan: its
// presence after a crash indicates a commit was interrupted after
// backup creation but before the matching Finish (spec §6: "Persisted
// state layout").
type OrphanedBackup struct {
	// BackupPath is the "<target>.filesafe" file found on disk.
	BackupPath string
	// TargetPath is the original path the backup covers.
	TargetPath string
	// TargetExists reports whether TargetPath is also present — if it
	// is, the interrupted commit likely reached the rename step and
	// the backup is now safe to discard; if it is not, the rename
	// never happened and restoring the backup is the safe repair.
	TargetExists bool
	// DeleteInProgress reports whether a deleteMarkerSuffix sibling file
	// sits next to BackupPath, meaning this backup was produced by a
	// Delete's target-to-backup rename rather than a Create/Rename's
	// preserve-before-overwrite copy. When true, TargetPath's absence is
	// the correct, already-committed final state — the delete
	// succeeded and only Finish's backup cleanup is outstanding — and
	// Repair must not restore the backup over it (see Repair).
	DeleteInProgress bool
}

// Scan walks root looking for orphaned ".filesafe" backups. It never
// mutates the filesystem; call Repair on the results to act on them.
func Scan(osFs afero.Fs, root string) ([]OrphanedBackup, error) {
	var found []OrphanedBackup

	err := afero.Walk(osFs, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || !strings.HasSuffix(path, backupSuffix) {
			return nil
		}
		target := strings.TrimSuffix(path, backupSuffix)
		exists, _ := afero.Exists(osFs, target)
		deleteInProgress, _ := afero.Exists(osFs, deleteMarkerPath(target))
		found = append(found, OrphanedBackup{
			BackupPath:       path,
			TargetPath:       target,
			TargetExists:     exists,
			DeleteInProgress: deleteInProgress,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(found) > 0 {
		metrics.Global.IncRecoveryFound()
	}
	return found, nil
}

// Repair resolves an orphaned backup the same way an operator's manual
// procedure would (spec §6). Two independent signals, not one, decide
// the outcome:
//
//   - DeleteInProgress means the backup is a Delete's, so the target's
//     absence is already the correct, committed final state — the
//     right repair is the one TPCFinish would have done: discard the
//     backup (and its marker), never restore it. Restoring here would
//     silently undo a delete that already succeeded.
//   - Otherwise the backup is a Create/Rename's preserve-before-
//     overwrite copy: if the target exists, the commit's rename step
//     completed and the backup is redundant; if the target is absent,
//     the rename never happened and restoring the backup over the
//     target is the safe repair.
//
// This is still the same best-effort, crash-recovery heuristic spec §6
// documents as a manual operator procedure — it is safe to automate
// unattended (e.g. via a --repair flag) only because DeleteInProgress
// resolves the one case that heuristic alone gets wrong; it is not a
// substitute for understanding why a backup was left behind.
func Repair(osFs afero.Fs, o OrphanedBackup) error {
	var err error
	switch {
	case o.DeleteInProgress:
		err = osFs.Remove(o.BackupPath)
		if err == nil {
			osFs.Remove(deleteMarkerPath(o.TargetPath))
		}
	case o.TargetExists:
		err = osFs.Remove(o.BackupPath)
	default:
		err = osFs.Rename(o.BackupPath, o.TargetPath)
	}
	if err == nil {
		metrics.Global.IncRecoveryRepair()
	}
	return err
}
