// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitializeGeneratesDefaults(t *testing.T) {
	configFile := path.Join(t.TempDir(), "config.yaml")

	cfg, err := Initialize(configFile)
	require.NoError(t, err)
	require.FileExists(t, configFile)

	require.Equal(t, uint64(3), cfg.Retry.MaxRetries)
	require.Equal(t, "exponential", cfg.Retry.Policy)
	require.Equal(t, 5, cfg.Retry.BaseWaitSeconds)
	require.NotEmpty(t, cfg.Mirror.Candidates)
}

func TestInitializeReadsExistingFile(t *testing.T) {
	configFile := path.Join(t.TempDir(), "config.yaml")
	doc := `
retry:
  maxRetries: 7
  policy: linear
  baseWaitSeconds: 2
ssh:
  portMin: 2000
  portMax: 3000
  port: 2222
`
	require.NoError(t, os.WriteFile(configFile, []byte(doc), 0644))

	cfg, err := Initialize(configFile)
	require.NoError(t, err)
	require.Equal(t, uint64(7), cfg.Retry.MaxRetries)
	require.Equal(t, "linear", cfg.Retry.Policy)
	require.Equal(t, 2222, cfg.SSH.Port)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := Default()
	cfg.Retry.Policy = "fibonacci"
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.SSH.PortMin = 5000
	cfg.SSH.PortMax = 4000
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.SSH.Port = 80
	require.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Mirror.Candidates = nil
	require.Error(t, cfg.Validate())
}
