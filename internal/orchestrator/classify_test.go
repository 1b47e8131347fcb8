// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"errors"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/require"
)

func TestClassifyTable(t *testing.T) {
	cases := []struct {
		code int
		want Class
	}{
		{1, ClassGeneral},
		{100, ClassNetwork},
		{101, ClassNetwork},
		{102, ClassNetwork},
		{126, ClassMissingCommand},
		{127, ClassMissingCommand},
		{0, ClassUnclassified},
		{2, ClassUnclassified},
		{42, ClassUnclassified},
		{103, ClassUnclassified},
		{125, ClassUnclassified},
		{128, ClassUnclassified},
		{255, ClassUnclassified},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, Classify(tc.code), "exit code %d", tc.code)
	}
}

func TestOnlyNetworkIsRetryable(t *testing.T) {
	require.True(t, ClassNetwork.Retryable())
	require.False(t, ClassGeneral.Retryable())
	require.False(t, ClassMissingCommand.Retryable())
	require.False(t, ClassUnclassified.Retryable())
}

func TestNewCommandErrorCarriesProperties(t *testing.T) {
	err := NewCommandError("apt-get update", 100, errors.New("exit status 100"))

	require.True(t, errorx.IsOfType(err, NetworkError))
	require.Equal(t, 100, ExitCodeOf(err))
	require.Equal(t, "apt-get update", CommandOf(err))
	require.Equal(t, ClassNetwork, ClassifyError(err))
}

func TestClassifyErrorFallsBackToTraits(t *testing.T) {
	require.Equal(t, ClassNetwork, ClassifyError(errorx.TimeoutElapsed.New("dial timed out")))
	require.Equal(t, ClassNetwork, ClassifyError(NetworkError.New("connection refused")))
	require.Equal(t, ClassUnclassified, ClassifyError(errors.New("something else")))
	require.Equal(t, ClassUnclassified, ClassifyError(nil))
}

func TestClassifyErrorPrefersExitCode(t *testing.T) {
	// a network-typed error with a non-network exit code classifies by code
	err := NetworkError.New("gave up").WithProperty(ExitCodeProperty, 127)
	require.Equal(t, ClassMissingCommand, ClassifyError(err))
}

func TestExitCodeOfWithoutProperty(t *testing.T) {
	require.Equal(t, -1, ExitCodeOf(errors.New("bare")))
	require.Empty(t, CommandOf(errors.New("bare")))
}
