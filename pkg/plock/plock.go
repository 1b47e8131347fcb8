// SPDX-License-Identifier: Apache-2.0

// Package plock guards against two provisioning runs mutating the same
// host at once.
package plock

import (
	"os"
	"path"

	"github.com/gofrs/flock"
	"github.com/joomcode/errorx"

	"github.com/groundwork-sh/groundwork/internal/core"
)

var (
	ErrNamespace = errorx.NewNamespace("plock")

	// HeldError means another run owns the lock right now.
	HeldError = ErrNamespace.NewType("held")
)

// Lock is an exclusive advisory file lock.
type Lock struct {
	fl *flock.Flock
}

// Acquire takes the lock without blocking. A held lock is an immediate
// error, not a wait.
func Acquire(lockFile string) (*Lock, error) {
	if err := os.MkdirAll(path.Dir(lockFile), core.DefaultDirOrExecPerm); err != nil {
		return nil, errorx.ExternalError.Wrap(err, "failed to create lock directory for %s", lockFile)
	}

	fl := flock.New(lockFile)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, errorx.ExternalError.Wrap(err, "failed to acquire lock %s", lockFile)
	}
	if !locked {
		return nil, HeldError.New("another provisioning run holds %s", lockFile)
	}
	return &Lock{fl: fl}, nil
}

// Release drops the lock. Safe to call more than once.
func (l *Lock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}
