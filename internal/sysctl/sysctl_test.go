package sysctl

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPathFromKey(t *testing.T) {
	p, err := PathFromKey("net.ipv4.tcp_syncookies")
	require.NoError(t, err)
	require.Equal(t, path.Join(DefaultPath, "net/ipv4/tcp_syncookies"), p)

	p, err = PathFromKey("-kernel.kptr_restrict")
	require.NoError(t, err)
	require.Equal(t, path.Join(DefaultPath, "kernel/kptr_restrict"), p)

	_, err = PathFromKey("")
	require.Error(t, err)
}

func TestWriteConfiguration(t *testing.T) {
	orig := sysctlConfigDestinationDir
	sysctlConfigDestinationDir = t.TempDir()
	defer func() { sysctlConfigDestinationDir = orig }()

	dest, err := WriteConfiguration()
	require.NoError(t, err)
	require.Equal(t, path.Join(sysctlConfigDestinationDir, ConfFileName), dest)

	out, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Contains(t, string(out), "net.ipv4.tcp_syncookies = 1")
	require.Contains(t, string(out), "kernel.kptr_restrict = 2")
}

func TestSetWritesProcPath(t *testing.T) {
	orig := procSysPath
	procSysPath = t.TempDir()
	defer func() { procSysPath = orig }()

	require.NoError(t, os.MkdirAll(path.Join(procSysPath, "net/ipv4"), 0755))
	require.NoError(t, os.WriteFile(path.Join(procSysPath, "net/ipv4/tcp_syncookies"), []byte("0"), 0644))

	require.NoError(t, Set("net.ipv4.tcp_syncookies", "1"))

	out, err := os.ReadFile(path.Join(procSysPath, "net/ipv4/tcp_syncookies"))
	require.NoError(t, err)
	require.Equal(t, "1", string(out))
}
