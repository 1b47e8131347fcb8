// SPDX-License-Identifier: Apache-2.0

package orchestrator

import "github.com/joomcode/errorx"

var (
	ErrNamespace = errorx.NewNamespace("provision")

	// GeneralError is a command failure with exit status 1.
	GeneralError = ErrNamespace.NewType("general")

	// NetworkError is a transient connectivity failure. It carries the
	// temporary trait so trait-based checks agree with the exit code table.
	NetworkError = ErrNamespace.NewType("network", errorx.Temporary())

	// MissingCommandError is a failure caused by an absent or
	// non-executable command.
	MissingCommandError = ErrNamespace.NewType("missing_command")

	// UnclassifiedError is any failure the exit code table does not cover.
	UnclassifiedError = ErrNamespace.NewType("unclassified")

	// ExitCodeProperty holds the numeric exit status of the failed command.
	ExitCodeProperty = errorx.RegisterProperty("exitCode")

	// CommandProperty holds the literal command line that failed.
	CommandProperty = errorx.RegisterProperty("command")
)

// NewCommandError wraps a command failure into the error type of its class,
// preserving the command line and exit status as properties.
func NewCommandError(command string, exitCode int, cause error) error {
	t := typeOf(Classify(exitCode))

	var err *errorx.Error
	if cause != nil {
		err = t.Wrap(cause, "command failed: %s", command)
	} else {
		err = t.New("command failed: %s", command)
	}

	return err.
		WithProperty(ExitCodeProperty, exitCode).
		WithProperty(CommandProperty, command)
}

// CommandOf returns the command line attached to err, if any.
func CommandOf(err error) string {
	if cmd, ok := errorx.ExtractProperty(err, CommandProperty); ok {
		if s, isString := cmd.(string); isString {
			return s
		}
	}
	return ""
}

// ExitCodeOf returns the exit status attached to err. Errors without one
// report -1 so they are distinguishable from a real status.
func ExitCodeOf(err error) int {
	if code, ok := errorx.ExtractProperty(err, ExitCodeProperty); ok {
		if c, isInt := code.(int); isInt {
			return c
		}
	}
	return -1
}
