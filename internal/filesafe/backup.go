package filesafe

import (
	"io"
	"os"

	"github.com/spf13/afero"
)

// backupSuffix is the on-disk marker for an in-flight commit's saved
// original (spec §6: "Persisted state layout").
const backupSuffix = ".filesafe"

func backupPath(target string) string { return target + backupSuffix }

// deleteMarkerSuffix flags a backupPath as having been produced by a
// delete's target-to-backup rename rather than a create/rename's
// preserve-before-overwrite copy. Scan uses its presence to tell apart
// two backups that otherwise look identical on disk: for a delete, the
// target's absence is the correct, already-committed final state; for a
// create/rename, the target's absence would mean the commit never
// reached its rename step. Without this marker, Repair cannot
// distinguish "commit succeeded, finish pending" from "commit never
// ran" and would restore a completed delete's backup right back over
// the (rightfully) deleted target (see recovery.go's Repair).
const deleteMarkerSuffix = backupSuffix + ".delete"

func deleteMarkerPath(target string) string { return target + deleteMarkerSuffix }

// preserveOriginal makes backupPath(target) survive the overwriting
// rename that follows. On a real OS filesystem this is a hard link, so
// the backup costs no extra disk space and needs no copy; afero's Fs
// interface has no Link method, so the in-memory test double instead
// duplicates the content, which is observably equivalent for a manager
// whose job is preserving bytes across the commit window, not inode
// identity.
func (m *fsManager) preserveOriginal(target string) error {
	if _, ok := underlyingOsFs(m.fs); ok {
		return os.Link(target, backupPath(target))
	}
	return copyFile(m.fs, target, backupPath(target))
}

// underlyingOsFs reports whether fs talks to the real OS filesystem,
// where a hard link is meaningful.
func underlyingOsFs(fs afero.Fs) (afero.Fs, bool) {
	if _, ok := fs.(*afero.OsFs); ok {
		return fs, true
	}
	return nil, false
}

func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := fs.Stat(src)
	if err != nil {
		return err
	}

	out, err := fs.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
