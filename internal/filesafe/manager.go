// Package filesafe implements a file-level two-phase-commit data
// manager: client code creates, overwrites, renames, or deletes regular
// files within the scope of a host transaction, and the whole batch is
// applied atomically at commit or rolled back on abort — including
// recovery across a crash between prepare and finish.
//
// The protocol is grounded on repoze.filesafe's FileSafeDataManager:
// stage new content in a temp file, hard-link the original aside to
// "<target>.filesafe" before the overwriting rename, and let Finish or
// Abort decide whether that backup is discarded or restored.
package filesafe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
	"github.com/spf13/afero"

	"github.com/yuzushioh/filesafe/internal/filesafe/config"
	"github.com/yuzushioh/filesafe/internal/filesafe/logging"
	"github.com/yuzushioh/filesafe/internal/filesafe/metrics"
)

// Manager is the capability set shared by the real, disk-backed manager
// and the in-memory test double (spec §4.7, design note 3: "Polymorphism
// over the two managers... use an interface abstraction").
type Manager interface {
	Create(target string, mode OpenMode) (WriteHandle, error)
	Rename(source, target string, recursive bool) error
	Delete(target string) error
	Open(target string, mode OpenMode) (ReadHandle, error)
	Exists(target string) (bool, error)

	// 2PC participant surface (spec §6.1).
	TPCBegin(ctx context.Context) error
	TPCVote(ctx context.Context) error
	Commit(ctx context.Context) error
	TPCFinish(ctx context.Context) error
	TPCAbort(ctx context.Context) error
	SortKey() string
}

// fsManager is the concrete Manager. Both NewManager (afero.NewOsFs)
// and NewMemoryManager (afero.NewMemMapFs) return this same type
// parameterized by afero.Fs, rather than two independently-written
// types where the memory one subclasses or duplicates the other's
// control flow — see DESIGN.md for why this satisfies design note 3
// ("do not let the test double inherit from the real one") through
// composition instead of a second bespoke implementation: afero.Fs is
// the seam, not an inheritance relationship.
type fsManager struct {
	fs         afero.Fs
	stagingDir string
	cfg        config.Config
	metrics    *metrics.Collector

	inCommit bool
	vault    *Vault
}

// ManagerOption configures a Manager at construction.
type ManagerOption func(*fsManager)

// WithStagingDir overrides the staging directory. Absent this option,
// the manager uses cfg.StagingDir(), falling back to os.TempDir().
func WithStagingDir(dir string) ManagerOption {
	return func(m *fsManager) { m.stagingDir = dir }
}

// WithConfig overrides the manager's Config.
func WithConfig(cfg config.Config) ManagerOption {
	return func(m *fsManager) { m.cfg = cfg }
}

// WithMetrics overrides the manager's metrics collector.
func WithMetrics(c *metrics.Collector) ManagerOption {
	return func(m *fsManager) { m.metrics = c }
}

// NewManager creates a disk-backed Manager (C1-C6 of the spec). The
// staging directory defaults to the platform temp directory when
// neither WithStagingDir nor the Config's StagingDir names one. The
// default Config is config.Default(), which reads no environment
// variables; FILESAFE_STAGING_DIR applies only when the caller passes
// WithConfig(config.FromEnv()).
func NewManager(opts ...ManagerOption) Manager {
	return newFsManager(afero.NewOsFs(), opts...)
}

// NewMemoryManager creates the in-memory test double (C7): it shares
// every line of the commit/finish/abort engine with the real manager,
// routed through afero.NewMemMapFs() instead of the OS filesystem, so a
// test exercises the real rename/link/backup protocol rather than a
// parallel hand-rolled one.
func NewMemoryManager(opts ...ManagerOption) Manager {
	m := newFsManager(afero.NewMemMapFs(), opts...)
	if m.stagingDir == "" {
		m.stagingDir = "/tmp/filesafe-stage"
	}
	return m
}

func newFsManager(fs afero.Fs, opts ...ManagerOption) *fsManager {
	m := &fsManager{
		fs:      fs,
		cfg:     config.Default(),
		metrics: metrics.Global,
		vault:   newVault(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.stagingDir == "" {
		m.stagingDir = m.cfg.StagingDir()
	}
	if m.stagingDir == "" {
		m.stagingDir = os.TempDir()
	}
	probeCrossDevice(fs, m.stagingDir)
	return m
}

// probeCrossDevice prepares the staging directory at construction and
// logs a warning if it cannot be created. It does not test whether a
// rename from the staging directory to any target crosses devices: a
// cross-device rename surfaces only from Commit, when a specific rename
// fails.
func probeCrossDevice(fs afero.Fs, stagingDir string) {
	if _, ok := fs.(*afero.MemMapFs); ok {
		return
	}
	if err := fs.MkdirAll(stagingDir, 0o755); err != nil {
		logging.Get().Warn("staging-dir-prepare", stagingDir, err)
	}
}

// ---- Vault recording operations (spec §4.1) ----

func (m *fsManager) Create(target string, mode OpenMode) (WriteHandle, error) {
	target = clean(target)

	if existing, ok := m.vault.get(target); ok && existing.Kind != kindDeletePending {
		return nil, &PreconditionError{Target: target, Err: ErrAlreadyStaged}
	}

	if err := m.fs.MkdirAll(m.stagingDir, 0o755); err != nil {
		return nil, &StagingIOError{Target: target, Err: err}
	}

	stagedPath := filepath.Join(m.stagingDir, stagingName(target))
	f, err := m.fs.OpenFile(stagedPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, &StagingIOError{Target: target, Err: err}
	}

	entry := &VaultEntry{
		Target:     target,
		Kind:       kindCreate,
		StagedPath: stagedPath,
		state:      stateRecorded,
	}
	if err := m.vault.put(entry); err != nil {
		f.Close()
		m.fs.Remove(stagedPath)
		return nil, err
	}

	_ = mode // not consulted: the staged file is always a new, empty read-write file
	return &fileHandle{f: f}, nil
}

func (m *fsManager) Rename(source, target string, recursive bool) error {
	source = clean(source)
	target = clean(target)

	if existing, ok := m.vault.get(target); ok && existing.Kind != kindDeletePending {
		return &PreconditionError{Target: target, Err: ErrAlreadyStaged}
	}

	entry := &VaultEntry{
		Target:     target,
		Kind:       kindRename,
		SourcePath: source,
		Recursive:  recursive,
		state:      stateRecorded,
	}
	return m.vault.put(entry)
}

func (m *fsManager) Delete(target string) error {
	target = clean(target)

	if existing, ok := m.vault.get(target); ok {
		switch existing.Kind {
		case kindCreate:
			m.fs.Remove(existing.StagedPath)
			m.vault.delete(target)
			return nil
		case kindRename:
			m.vault.delete(target)
			return nil
		case kindDeletePending:
			return &PreconditionError{Target: target, Err: ErrNotFound}
		}
	}

	if ok, _ := afero.Exists(m.fs, target); !ok {
		return &PreconditionError{Target: target, Err: ErrNotFound}
	}

	entry := &VaultEntry{
		Target:       target,
		Kind:         kindDeletePending,
		OriginalPath: target,
		state:        stateRecorded,
	}
	return m.vault.put(entry)
}

func (m *fsManager) Open(target string, mode OpenMode) (ReadHandle, error) {
	target = clean(target)

	if entry, ok := m.vault.get(target); ok {
		switch entry.Kind {
		case kindCreate:
			f, err := m.fs.Open(entry.StagedPath)
			if err != nil {
				return nil, &StagingIOError{Target: target, Err: err}
			}
			return &fileHandle{f: f}, nil
		case kindDeletePending:
			return nil, &PreconditionError{Target: target, Err: ErrNotFound}
		case kindRename:
			// Not yet moved: the target does not exist under that name.
			return nil, &PreconditionError{Target: target, Err: ErrNotFound}
		}
	}

	f, err := m.fs.Open(target)
	if err != nil {
		return nil, &PreconditionError{Target: target, Err: ErrNotFound}
	}
	return &fileHandle{f: f}, nil
}

func (m *fsManager) Exists(target string) (bool, error) {
	target = clean(target)

	if entry, ok := m.vault.get(target); ok {
		switch entry.Kind {
		case kindDeletePending:
			return false, nil
		case kindRename:
			if entry.SourcePath == target {
				return false, nil
			}
			return true, nil
		default:
			return true, nil
		}
	}

	return afero.Exists(m.fs, target)
}

// SortKey is the constant the coordinator uses to order resource
// callbacks deterministically (spec §6.1).
func (m *fsManager) SortKey() string { return "safety first" }

func clean(p string) string {
	if p == "" {
		return p
	}
	return filepath.Clean(p)
}

func stagingName(target string) string {
	return fmt.Sprintf("%s.%s", strings.ReplaceAll(filepath.Base(target), string(filepath.Separator), "_"), ulid.Make().String())
}
