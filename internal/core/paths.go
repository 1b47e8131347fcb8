// SPDX-License-Identifier: Apache-2.0

package core

import (
	"os"
	"path"
)

const (
	DefaultFilePerm      = 0644
	DefaultDirOrExecPerm = 0755
)

// Layout is the on-disk layout used by a provisioning run. All paths are
// resolved once at startup; steps receive them through the run context and
// never derive paths on their own.
type Layout struct {
	StateDir  string `yaml:"stateDir" json:"stateDir"`
	LogsDir   string `yaml:"logsDir" json:"logsDir"`
	TempDir   string `yaml:"tempDir" json:"tempDir"`
	BackupDir string `yaml:"backupDir" json:"backupDir"`

	// LedgerFile is the failure ledger. It is truncated at the start of a
	// run and removed at the end when no step failed.
	LedgerFile string `yaml:"ledgerFile" json:"ledgerFile"`

	// LockFile guards against concurrent provisioning runs.
	LockFile string `yaml:"lockFile" json:"lockFile"`
}

// DefaultLayout returns the production layout of a root-owned install.
func DefaultLayout() *Layout {
	return NewLayout("/var/lib/groundwork", "/var/log/groundwork", "/tmp/groundwork", "/var/backups/groundwork")
}

// NewLayout builds a layout from explicit base directories. Tests pass
// t.TempDir() derived paths here.
func NewLayout(stateDir, logsDir, tempDir, backupDir string) *Layout {
	return &Layout{
		StateDir:   stateDir,
		LogsDir:    logsDir,
		TempDir:    tempDir,
		BackupDir:  backupDir,
		LedgerFile: path.Join(logsDir, "failed_steps.log"),
		LockFile:   path.Join(stateDir, "groundwork.lock"),
	}
}

// AllDirectories lists every directory the layout requires.
func (l *Layout) AllDirectories() []string {
	return []string{l.StateDir, l.LogsDir, l.TempDir, l.BackupDir}
}

// EnsureDirectories creates any missing layout directories.
func (l *Layout) EnsureDirectories() error {
	for _, dir := range l.AllDirectories() {
		if err := os.MkdirAll(dir, DefaultDirOrExecPerm); err != nil {
			return err
		}
	}
	return nil
}

var layout = DefaultLayout()

// Paths returns the active layout.
func Paths() *Layout {
	return layout
}

// SetPaths replaces the active layout. Intended for tests and for the
// --state-dir style overrides of the CLI.
func SetPaths(l *Layout) {
	if l != nil {
		layout = l
	}
}
