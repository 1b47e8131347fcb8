// SPDX-License-Identifier: Apache-2.0

package exit

import (
	"fmt"
	"os"
)

type Code int

func (ec Code) String() string {
	return fmt.Sprintf("%d", ec)
}

func (ec Code) Int() int {
	return int(ec)
}

func (ec Code) TerminateProcess() {
	os.Exit(int(ec))
}

func (ec Code) Is(other int) bool {
	return int(ec) == other
}

const MinValidExitCode Code = 0
const MaxValidExitCode Code = 255

// POSIX standard exit code definitions.

const NormalTermination Code = 0
const GeneralError Code = 1
const UsageError Code = 64
const ServiceUnavailable Code = 69
const SystemError Code = 71
const TemporaryFailure Code = 75
const PermissionDenied Code = 77
const ConfigurationError Code = 78

// Application specific exit code definitions.

// StepFailures is returned when one or more provisioning steps failed.
// Precondition failures (not root, unsupported OS, no package manager)
// terminate with the same code.
const StepFailures Code = 1

// CommandNotExecutable and CommandNotFound mirror the shell's reserved
// exit statuses for a non-executable or missing command.
const CommandNotExecutable Code = 126
const CommandNotFound Code = 127
