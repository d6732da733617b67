package filesafe

import (
	"fmt"
	"os"
)

// fsyncDir syncs a directory's metadata to disk, the same helper shape
// as the teacher's fs.FsyncDir: after a rename, the directory entry
// itself needs a sync for the rename to survive a crash, not just the
// file's own contents.
func fsyncDir(dirPath string) error {
	dir, err := os.Open(dirPath)
	if err != nil {
		return fmt.Errorf("fsyncDir: open %s: %w", dirPath, err)
	}
	defer dir.Close()

	if err := dir.Sync(); err != nil {
		return fmt.Errorf("fsyncDir: sync %s: %w", dirPath, err)
	}
	return nil
}

// maybeFsyncParent fsyncs target's parent directory when strict fsync
// is enabled and the manager is backed by the real OS filesystem — the
// in-memory test double has no durability to speak of, and fsync is a
// no-op there by construction. With FILESAFE_STRICT_FSYNC off (the
// default) no fsync is done at all; with it on, each commit move or
// delete is followed by a directory fsync whose failure is returned as
// a CommitError.
func (m *fsManager) maybeFsyncParent(target string) error {
	if !m.cfg.StrictFsync() {
		return nil
	}
	if _, ok := underlyingOsFs(m.fs); !ok {
		return nil
	}
	if err := fsyncDir(parentDir(target)); err != nil {
		return &CommitError{Target: target, Err: err}
	}
	return nil
}
