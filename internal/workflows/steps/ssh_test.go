// SPDX-License-Identifier: Apache-2.0

package steps

import (
	"context"
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/groundwork-sh/groundwork/internal/config"
	"github.com/groundwork-sh/groundwork/internal/inputs"
	"github.com/groundwork-sh/groundwork/internal/orchestrator"
	"github.com/groundwork-sh/groundwork/pkg/backup"
)

func TestRenderSSHDropIn(t *testing.T) {
	full := renderSSHDropIn(inputs.Answers{
		SSHPort:       2222,
		AdminUser:     "ops",
		AuthorizedKey: "ssh-ed25519 AAAA ops@host",
	})
	require.Contains(t, full, "Port 2222\n")
	require.Contains(t, full, "PermitRootLogin no\n")
	require.Contains(t, full, "PasswordAuthentication no\n")

	// without an admin key, password logins must stay open
	minimal := renderSSHDropIn(inputs.Answers{})
	require.NotContains(t, minimal, "Port ")
	require.NotContains(t, minimal, "PasswordAuthentication no")
	require.Contains(t, minimal, "PermitRootLogin prohibit-password\n")
	require.Contains(t, minimal, "MaxAuthTries 3\n")
}

func TestHardenSSHStepRemovesRejectedDropIn(t *testing.T) {
	dir := t.TempDir()

	origConfig, origDropIn := sshdConfigFile, sshdDropInDir
	sshdConfigFile = path.Join(dir, "sshd_config")
	sshdDropInDir = path.Join(dir, "sshd_config.d")
	defer func() { sshdConfigFile, sshdDropInDir = origConfig, origDropIn }()

	require.NoError(t, os.WriteFile(sshdConfigFile, []byte("Port 22\n"), 0600))

	origRun := RunCmd
	RunCmd = func(ctx context.Context, name string, args ...string) error {
		if name == "sshd" {
			return orchestrator.NewCommandError("sshd -t", 1, nil)
		}
		return nil
	}
	defer func() { RunCmd = origRun }()

	rc := RunContext{
		Cfg:     config.Default(),
		Ans:     inputs.Answers{SSHPort: 2222},
		Backups: backup.NewStore(path.Join(dir, "backups")),
	}

	err := HardenSSHStep(rc).Operation(context.Background())
	require.Error(t, err)
	require.NoFileExists(t, path.Join(sshdDropInDir, sshdDropInName))
}

func TestHardenSSHStepWritesDropIn(t *testing.T) {
	dir := t.TempDir()

	origConfig, origDropIn := sshdConfigFile, sshdDropInDir
	sshdConfigFile = path.Join(dir, "sshd_config")
	sshdDropInDir = path.Join(dir, "sshd_config.d")
	defer func() { sshdConfigFile, sshdDropInDir = origConfig, origDropIn }()

	require.NoError(t, os.WriteFile(sshdConfigFile, []byte("Port 22\n"), 0600))

	origRun := RunCmd
	RunCmd = func(ctx context.Context, name string, args ...string) error { return nil }
	defer func() { RunCmd = origRun }()

	origRestart := restartSSHD
	restarted := false
	restartSSHD = func(ctx context.Context) error {
		restarted = true
		return nil
	}
	defer func() { restartSSHD = origRestart }()

	rc := RunContext{
		Cfg:     config.Default(),
		Ans:     inputs.Answers{SSHPort: 2222, AdminUser: "ops", AuthorizedKey: "ssh-ed25519 AAAA"},
		Backups: backup.NewStore(path.Join(dir, "backups")),
	}

	require.NoError(t, HardenSSHStep(rc).Operation(context.Background()))
	require.True(t, restarted)

	out, err := os.ReadFile(path.Join(sshdDropInDir, sshdDropInName))
	require.NoError(t, err)
	require.Contains(t, string(out), "Port 2222")
}
