// SPDX-License-Identifier: Apache-2.0

package inputs

import (
	"testing"

	"github.com/charmbracelet/huh"
	"github.com/stretchr/testify/require"

	"github.com/groundwork-sh/groundwork/internal/config"
)

func TestCollectNonInteractive(t *testing.T) {
	cfg := config.Default()
	cfg.NonInteractive = true
	cfg.Timezone.Default = "Europe/Berlin"
	cfg.SSH.Port = 2222
	cfg.User.Name = "ops"
	cfg.User.AuthorizedKey = "ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAA ops@host"

	ans, err := Collect(cfg)
	require.NoError(t, err)
	require.Equal(t, "Europe/Berlin", ans.Timezone)
	require.Equal(t, 2222, ans.SSHPort)
	require.Equal(t, "ops", ans.AdminUser)
	require.True(t, ans.InstallDocker)
}

func TestCollectNonInteractiveOpenInputsStayZero(t *testing.T) {
	cfg := config.Default()
	cfg.NonInteractive = true

	ans, err := Collect(cfg)
	require.NoError(t, err)
	require.Empty(t, ans.Timezone)
	require.Zero(t, ans.SSHPort)
	require.Empty(t, ans.AdminUser)
}

func TestCollectConfigSuppressesPrompts(t *testing.T) {
	orig := runForm
	defer func() { runForm = orig }()
	prompted := false
	runForm = func(f *huh.Form) error {
		prompted = true
		return nil
	}

	cfg := config.Default()
	cfg.Timezone.Default = "UTC"

	_, err := Collect(cfg)
	require.NoError(t, err)
	// the confirm field still runs, but through the stub
	require.True(t, prompted)
}

func TestValidate(t *testing.T) {
	cfg := config.Default()

	require.Error(t, Answers{SSHPort: 80}.Validate(cfg))
	require.Error(t, Answers{AdminUser: "Bad User"}.Validate(cfg))
	require.Error(t, Answers{AdminUser: "ops"}.Validate(cfg)) // key missing
	require.NoError(t, Answers{}.Validate(cfg))
	require.NoError(t, Answers{
		SSHPort:       2222,
		AdminUser:     "ops",
		AuthorizedKey: "ssh-rsa AAAAB3Nza ops@host",
	}.Validate(cfg))
}
