// SPDX-License-Identifier: Apache-2.0

package orchestrator

import "github.com/joomcode/errorx"

// Class is the failure class assigned to a failed command.
type Class int

const (
	ClassUnclassified Class = iota
	ClassGeneral
	ClassNetwork
	ClassMissingCommand
)

func (c Class) String() string {
	switch c {
	case ClassGeneral:
		return "general"
	case ClassNetwork:
		return "network"
	case ClassMissingCommand:
		return "missing_command"
	default:
		return "unclassified"
	}
}

// Retryable reports whether failures of this class may be re-invoked.
func (c Class) Retryable() bool {
	return c == ClassNetwork
}

// Classify maps a command exit status to its failure class. The mapping is
// a fixed table keyed on the numeric status only; output text never
// participates.
func Classify(exitCode int) Class {
	switch exitCode {
	case 1:
		return ClassGeneral
	case 100, 101, 102:
		return ClassNetwork
	case 126, 127:
		return ClassMissingCommand
	default:
		return ClassUnclassified
	}
}

// ClassifyError derives the class of err. Errors carrying an exit code
// property go through the exit code table; otherwise transient and timeout
// traits mark the error as a network failure.
func ClassifyError(err error) Class {
	if err == nil {
		return ClassUnclassified
	}
	if code, ok := errorx.ExtractProperty(err, ExitCodeProperty); ok {
		if c, isInt := code.(int); isInt {
			return Classify(c)
		}
	}
	if errorx.HasTrait(err, errorx.Temporary()) || errorx.HasTrait(err, errorx.Timeout()) {
		return ClassNetwork
	}
	return ClassUnclassified
}

func typeOf(c Class) *errorx.Type {
	switch c {
	case ClassGeneral:
		return GeneralError
	case ClassNetwork:
		return NetworkError
	case ClassMissingCommand:
		return MissingCommandError
	default:
		return UnclassifiedError
	}
}
