// Package config provides read-only, environment-driven configuration
// for the filesafe manager, following the same interface-over-struct
// shape the host application uses for its own configuration so that a
// caller embedding filesafe can satisfy Config from its own settings
// object instead of being forced through environment variables.
package config

import "os"

// Config abstracts the knobs filesafe's manager and recovery scanner
// need. The default implementation reads environment variables; nothing
// in the manager depends on that fact.
type Config interface {
	// StagingDir is the staging directory a manager uses when it is
	// constructed without WithStagingDir. Empty means "use the
	// platform default temp directory".
	StagingDir() string

	// StrictFsync, when true, makes commit fsync the parent directory of
	// each target after its rename and turns an fsync failure into a
	// CommitError. Off by default, in which case commit does no fsync at
	// all and relies on rename alone.
	StrictFsync() bool

	// DisableRecovery skips the startup orphaned-backup scan.
	DisableRecovery() bool

	// RecoveryDir is the root the startup scanner walks looking for
	// orphaned ".filesafe" backups. Empty means "do not scan".
	RecoveryDir() string
}

// EnvConfig is the concrete Config backed by environment variables.
type EnvConfig struct {
	stagingDir      string
	strictFsync     bool
	disableRecovery bool
	recoveryDir     string
}

// FromEnv reads FILESAFE_* environment variables into a Config.
func FromEnv() *EnvConfig {
	return &EnvConfig{
		stagingDir:      os.Getenv("FILESAFE_STAGING_DIR"),
		strictFsync:     boolEnv("FILESAFE_STRICT_FSYNC"),
		disableRecovery: boolEnv("FILESAFE_DISABLE_RECOVERY"),
		recoveryDir:     os.Getenv("FILESAFE_RECOVERY_DIR"),
	}
}

func boolEnv(name string) bool {
	switch os.Getenv(name) {
	case "1", "true", "TRUE", "True", "yes":
		return true
	default:
		return false
	}
}

func (c *EnvConfig) StagingDir() string    { return c.stagingDir }
func (c *EnvConfig) StrictFsync() bool     { return c.strictFsync }
func (c *EnvConfig) DisableRecovery() bool { return c.disableRecovery }
func (c *EnvConfig) RecoveryDir() string   { return c.recoveryDir }

// Default is a Config with every knob at its zero value: no staging dir
// override, no fsync during commit, recovery enabled but with
// no directory configured (so the scan is a no-op until RecoveryDir is
// set explicitly).
func Default() Config {
	return &EnvConfig{}
}
