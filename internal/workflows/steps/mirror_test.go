// SPDX-License-Identifier: Apache-2.0

package steps

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRenderSourcesDebian(t *testing.T) {
	doc := renderSources("debian", "bookworm", "https://deb.debian.org/debian")

	require.Contains(t, doc, "deb https://deb.debian.org/debian bookworm main contrib non-free non-free-firmware\n")
	require.Contains(t, doc, "deb https://deb.debian.org/debian bookworm-updates main")
	require.Contains(t, doc, "deb http://security.debian.org/debian-security bookworm-security main")
}

func TestRenderSourcesUbuntu(t *testing.T) {
	doc := renderSources("ubuntu", "jammy", "https://mirror.example.com/ubuntu")

	require.Contains(t, doc, "deb https://mirror.example.com/ubuntu jammy main restricted universe multiverse\n")
	require.Contains(t, doc, "deb http://security.ubuntu.com/ubuntu jammy-security main restricted universe multiverse\n")
}
