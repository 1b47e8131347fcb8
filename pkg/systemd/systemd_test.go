package systemd

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnsureServiceSuffix(t *testing.T) {
	require.Equal(t, "docker.service", ensureServiceSuffix("docker"))
	require.Equal(t, "docker.service", ensureServiceSuffix("docker.service"))
	require.Equal(t, "snapd.socket", ensureServiceSuffix("snapd.socket"))
	require.Equal(t, "apt-daily.timer", ensureServiceSuffix("apt-daily.timer"))
}
