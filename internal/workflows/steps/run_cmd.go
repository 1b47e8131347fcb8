package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/groundwork-sh/groundwork/internal/orchestrator"
)

// RunCmd runs a command and returns a classified error if it fails
var RunCmd = func(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return wrapExecError(commandLine(name, args...), out, err)
	}
	return nil
}

// RunCmdOutput runs a bash command and returns its trimmed output or a classified error
var RunCmdOutput = func(ctx context.Context, script string) (string, error) {
	out, err := exec.CommandContext(ctx, "bash", "-c", script).Output()
	if err != nil {
		return "", wrapExecError(script, nil, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// WrapExitError attaches the exit status buried in err, if any, so package
// manager failures classify by the real apt exit code.
func WrapExitError(command string, err error) error {
	return wrapExecError(command, nil, err)
}

func wrapExecError(command string, output []byte, err error) error {
	code := 1
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		code = exitErr.ExitCode()
	case errors.Is(err, exec.ErrNotFound):
		code = 127
	case errors.Is(err, os.ErrPermission):
		code = 126
	}

	cause := err
	if tail := outputTail(output); tail != "" {
		cause = fmt.Errorf("%w: %s", err, tail)
	}
	return orchestrator.NewCommandError(command, code, cause)
}

func commandLine(name string, args ...string) string {
	return strings.Join(append([]string{name}, args...), " ")
}

// outputTail keeps the last part of combined output, which is where apt and
// friends print the actual reason.
func outputTail(out []byte) string {
	const max = 512
	s := strings.TrimSpace(string(out))
	if len(s) > max {
		s = "..." + s[len(s)-max:]
	}
	return s
}
