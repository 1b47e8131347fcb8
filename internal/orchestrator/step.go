// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"time"
)

// Operation is one unit of provisioning work. Everything the operation
// needs is captured at construction time; the orchestrator only supplies
// the context.
type Operation func(ctx context.Context) error

// Step is a named operation in the provisioning sequence.
type Step struct {
	Name string

	// Critical aborts the remaining sequence when this step fails. All
	// other failures are recorded and the sequence continues.
	Critical bool

	Operation Operation
}

// StepStatus is the lifecycle state of a single step.
type StepStatus int

const (
	StatusPending StepStatus = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
)

func (s StepStatus) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// RunState is the lifecycle state of a whole run.
type RunState int

const (
	RunIdle RunState = iota
	RunRunning
	RunCompleted
)

// ExecutionResult is the recorded outcome of one step.
type ExecutionResult struct {
	Step     string
	Status   StepStatus
	Class    Class
	Code     int
	Err      error
	Duration time.Duration
}

func (r ExecutionResult) Success() bool {
	return r.Status == StatusSucceeded
}
