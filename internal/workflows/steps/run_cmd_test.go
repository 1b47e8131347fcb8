package steps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/groundwork-sh/groundwork/internal/orchestrator"
)

func TestRunCmdSuccess(t *testing.T) {
	require.NoError(t, RunCmd(context.Background(), "true"))
}

func TestRunCmdClassifiesExitCode(t *testing.T) {
	cases := []struct {
		script string
		class  orchestrator.Class
		code   int
	}{
		{"exit 1", orchestrator.ClassGeneral, 1},
		{"exit 100", orchestrator.ClassNetwork, 100},
		{"exit 101", orchestrator.ClassNetwork, 101},
		{"exit 42", orchestrator.ClassUnclassified, 42},
	}

	for _, tc := range cases {
		err := RunCmd(context.Background(), "bash", "-c", tc.script)
		require.Error(t, err, tc.script)
		require.Equal(t, tc.class, orchestrator.ClassifyError(err), tc.script)
		require.Equal(t, tc.code, orchestrator.ExitCodeOf(err), tc.script)
		require.Contains(t, orchestrator.CommandOf(err), tc.script)
	}
}

func TestRunCmdMissingCommand(t *testing.T) {
	err := RunCmd(context.Background(), "definitely-not-a-real-command-xyz")
	require.Error(t, err)
	require.Equal(t, orchestrator.ClassMissingCommand, orchestrator.ClassifyError(err))
	require.Equal(t, 127, orchestrator.ExitCodeOf(err))
}

func TestRunCmdOutputTrims(t *testing.T) {
	out, err := RunCmdOutput(context.Background(), "echo '  hello  '")
	require.NoError(t, err)
	require.Equal(t, "hello", out)
}

func TestWrapExitErrorWithoutExitCode(t *testing.T) {
	err := WrapExitError("apt-get update", context.DeadlineExceeded)
	require.Equal(t, orchestrator.ClassGeneral, orchestrator.ClassifyError(err))
	require.Equal(t, 1, orchestrator.ExitCodeOf(err))
}
