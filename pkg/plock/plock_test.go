// SPDX-License-Identifier: Apache-2.0

package plock

import (
	"path"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/require"
)

func TestAcquireAndRelease(t *testing.T) {
	lockFile := path.Join(t.TempDir(), "groundwork.lock")

	l, err := Acquire(lockFile)
	require.NoError(t, err)
	require.NoError(t, l.Release())

	// reacquire after release
	l2, err := Acquire(lockFile)
	require.NoError(t, err)
	require.NoError(t, l2.Release())
}

func TestAcquireHeld(t *testing.T) {
	lockFile := path.Join(t.TempDir(), "groundwork.lock")

	l, err := Acquire(lockFile)
	require.NoError(t, err)
	defer func() { _ = l.Release() }()

	_, err = Acquire(lockFile)
	require.Error(t, err)
	require.True(t, errorx.IsOfType(err, HeldError))
}

func TestReleaseNil(t *testing.T) {
	var l *Lock
	require.NoError(t, l.Release())
}
