// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"path"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/groundwork-sh/groundwork/pkg/exit"
	"github.com/groundwork-sh/groundwork/pkg/logx"
)

func newTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := OpenLedger(path.Join(t.TempDir(), "failed_steps.log"))
	require.NoError(t, err)
	return l
}

func succeed(ctx context.Context) error { return nil }

func failWith(command string, code int) Operation {
	return func(ctx context.Context) error {
		return NewCommandError(command, code, nil)
	}
}

func TestRunAllSuccess(t *testing.T) {
	l := newTestLedger(t)
	o := New(l, logx.Nop(),
		Step{Name: "set-timezone", Operation: succeed},
		Step{Name: "remove-snapd", Operation: succeed},
		Step{Name: "install-docker", Operation: succeed},
	)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	require.True(t, summary.Succeeded())
	require.Empty(t, summary.FailedSteps)
	require.False(t, summary.LedgerKept)
	require.NoFileExists(t, summary.LedgerPath)
	require.True(t, summary.ExitCode().Is(exit.NormalTermination.Int()))
	require.Len(t, summary.Results, 3)
	require.Equal(t, RunCompleted, o.State())
}

func TestRunContinuesPastFailures(t *testing.T) {
	l := newTestLedger(t)
	o := New(l, logx.Nop(),
		Step{Name: "set-timezone", Operation: failWith("timedatectl", 1)},
		Step{Name: "remove-snapd", Operation: succeed},
		Step{Name: "install-docker", Operation: failWith("apt-get install docker-ce", 127)},
	)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	require.False(t, summary.Succeeded())
	require.Equal(t, []string{"set-timezone", "install-docker"}, summary.FailedSteps)
	require.True(t, summary.LedgerKept)
	require.FileExists(t, summary.LedgerPath)
	require.True(t, summary.ExitCode().Is(exit.StepFailures.Int()))
	require.False(t, summary.Halted)
	require.Len(t, summary.Results, 3)
	require.Equal(t, ClassGeneral, summary.Results[0].Class)
	require.Equal(t, ClassMissingCommand, summary.Results[2].Class)
}

func TestRunHaltsOnCriticalFailure(t *testing.T) {
	l := newTestLedger(t)
	ran := false
	o := New(l, logx.Nop(),
		Step{Name: "configure-apt-sources", Critical: true, Operation: failWith("apt-get update", 100)},
		Step{Name: "upgrade-packages", Operation: func(ctx context.Context) error {
			ran = true
			return nil
		}},
	)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)

	require.True(t, summary.Halted)
	require.False(t, ran)
	require.Equal(t, []string{"configure-apt-sources"}, summary.FailedSteps)
	require.Len(t, summary.Results, 1)
}

func TestRunCriticalSuccessDoesNotHalt(t *testing.T) {
	l := newTestLedger(t)
	o := New(l, logx.Nop(),
		Step{Name: "configure-apt-sources", Critical: true, Operation: succeed},
		Step{Name: "upgrade-packages", Operation: succeed},
	)

	summary, err := o.Run(context.Background())
	require.NoError(t, err)
	require.False(t, summary.Halted)
	require.Len(t, summary.Results, 2)
}

func TestRunOnlyOnce(t *testing.T) {
	l := newTestLedger(t)
	o := New(l, logx.Nop(), Step{Name: "set-timezone", Operation: succeed})

	_, err := o.Run(context.Background())
	require.NoError(t, err)

	_, err = o.Run(context.Background())
	require.Error(t, err)
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	l := newTestLedger(t)
	ctx, cancel := context.WithCancel(context.Background())

	o := New(l, logx.Nop(),
		Step{Name: "set-timezone", Operation: func(c context.Context) error {
			cancel()
			return nil
		}},
		Step{Name: "remove-snapd", Operation: succeed},
	)

	summary, err := o.Run(ctx)
	require.Error(t, err)
	require.Len(t, summary.Results, 1)
}
