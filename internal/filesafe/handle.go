package filesafe

import (
	"io"

	"github.com/spf13/afero"
)

// OpenMode names read, write, or append access. The manager accepts it
// on Create and Open but does not consult it: Create always stages a
// new, empty file opened read-write, and Open always opens read-only.
// There is no text/binary selector and no other mode flag is passed on
// to the filesystem.
type OpenMode int

const (
	// ModeRead names read access.
	ModeRead OpenMode = iota
	// ModeWrite names write access.
	ModeWrite
	// ModeAppend names append access; Create treats it like ModeWrite,
	// so the target's existing content is not carried into the staged
	// file.
	ModeAppend
)

// WriteHandle is returned by Create. The caller must Close it
// explicitly before Commit — the manager does not track open handles,
// and an unflushed handle at commit time produces undefined file
// contents (spec §5, "Scoped acquisition": this is a caller bug, not a
// recoverable failure).
type WriteHandle interface {
	io.Writer
	io.Closer
	// Name returns the staged path backing this handle, useful for
	// diagnostics and tests that want to inspect staged content before
	// commit.
	Name() string
}

// ReadHandle is returned by Open.
type ReadHandle interface {
	io.Reader
	io.Closer
}

// fileHandle adapts an afero.File to WriteHandle/ReadHandle.
type fileHandle struct {
	f afero.File
}

func (h *fileHandle) Write(p []byte) (int, error) { return h.f.Write(p) }
func (h *fileHandle) Read(p []byte) (int, error)  { return h.f.Read(p) }
func (h *fileHandle) Close() error                { return h.f.Close() }
func (h *fileHandle) Name() string                { return h.f.Name() }
