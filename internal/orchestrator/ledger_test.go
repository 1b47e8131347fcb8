// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"os"
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLedgerRemovedWhenEmpty(t *testing.T) {
	p := path.Join(t.TempDir(), "failed_steps.log")

	l, err := OpenLedger(p)
	require.NoError(t, err)
	require.FileExists(t, p)
	require.True(t, l.Empty())

	require.NoError(t, l.Close())
	require.NoFileExists(t, p)
}

func TestLedgerKeepsRecords(t *testing.T) {
	p := path.Join(t.TempDir(), "failed_steps.log")

	l, err := OpenLedger(p)
	require.NoError(t, err)

	require.NoError(t, l.Append(Record{
		Step:    "install-docker",
		Class:   ClassNetwork,
		Code:    101,
		Command: "apt-get install docker-ce",
		Message: "command failed: apt-get install docker-ce",
	}))
	require.NoError(t, l.Append(Record{
		Step:  "set-timezone",
		Class: ClassGeneral,
		Code:  1,
	}))
	require.NoError(t, l.Close())

	out, err := os.ReadFile(p)
	require.NoError(t, err)

	content := string(out)
	require.Contains(t, content, "step: install-docker")
	require.Contains(t, content, "code: 101")
	require.Contains(t, content, "class: network")
	require.Contains(t, content, "step: set-timezone")
	// every record ends with a separator line
	require.Equal(t, 2, strings.Count(content, RecordSeparator))
	require.True(t, strings.HasSuffix(strings.TrimRight(content, "\n"), RecordSeparator))
}

func TestLedgerTruncatesPreviousRun(t *testing.T) {
	p := path.Join(t.TempDir(), "failed_steps.log")
	require.NoError(t, os.WriteFile(p, []byte("stale content from last run\n"), 0644))

	l, err := OpenLedger(p)
	require.NoError(t, err)
	require.NoError(t, l.Append(Record{Step: "upgrade-packages", Class: ClassGeneral, Code: 1}))
	require.NoError(t, l.Close())

	out, err := os.ReadFile(p)
	require.NoError(t, err)
	require.NotContains(t, string(out), "stale content")
}

func TestLedgerFailedStepsOrder(t *testing.T) {
	l, err := OpenLedger(path.Join(t.TempDir(), "failed_steps.log"))
	require.NoError(t, err)
	defer func() { _ = l.Close() }()

	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, l.Append(Record{Step: name, Class: ClassGeneral, Code: 1}))
	}
	require.Equal(t, []string{"b", "a", "c"}, l.FailedSteps())
}

func TestLedgerAppendAfterClose(t *testing.T) {
	l, err := OpenLedger(path.Join(t.TempDir(), "failed_steps.log"))
	require.NoError(t, err)
	require.NoError(t, l.Close())

	require.Error(t, l.Append(Record{Step: "late"}))
	require.NoError(t, l.Close())
}
