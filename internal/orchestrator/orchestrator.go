// SPDX-License-Identifier: Apache-2.0

package orchestrator

import (
	"context"
	"time"

	"github.com/joomcode/errorx"
	"github.com/rs/zerolog"

	"github.com/groundwork-sh/groundwork/pkg/exit"
)

// Summary is the outcome of a whole provisioning run.
type Summary struct {
	Results []ExecutionResult

	// FailedSteps lists failed step names in execution order.
	FailedSteps []string

	// LedgerPath is where failure records were written. LedgerKept is
	// false when the run succeeded and the file was removed.
	LedgerPath string
	LedgerKept bool

	// Halted is true when a critical step failure aborted the sequence.
	Halted bool

	Duration time.Duration
}

func (s *Summary) Succeeded() bool {
	return len(s.FailedSteps) == 0
}

// ExitCode maps the run outcome onto the process exit status.
func (s *Summary) ExitCode() exit.Code {
	if s.Succeeded() {
		return exit.NormalTermination
	}
	return exit.StepFailures
}

// Orchestrator runs a fixed sequence of steps, recording every permanent
// failure in the ledger and continuing past non-critical ones.
type Orchestrator struct {
	steps  []Step
	ledger *Ledger
	state  RunState
	log    *zerolog.Logger
}

func New(ledger *Ledger, logger *zerolog.Logger, steps ...Step) *Orchestrator {
	return &Orchestrator{
		steps:  steps,
		ledger: ledger,
		log:    logger,
	}
}

func (o *Orchestrator) State() RunState {
	return o.state
}

// Run executes the sequence once. A second call on the same instance is an
// error. The summary is returned even when the run was halted or the
// context was cancelled; the error covers engine-level problems only, never
// step failures.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	if o.state != RunIdle {
		return nil, errorx.IllegalState.New("orchestrator has already run")
	}
	o.state = RunRunning
	started := time.Now()

	summary := &Summary{LedgerPath: o.ledger.Path()}

	for _, stp := range o.steps {
		if ctx.Err() != nil {
			break
		}

		o.log.Info().Str("step", stp.Name).Msg("Starting step")
		res := o.runStep(ctx, stp)
		summary.Results = append(summary.Results, res)

		if res.Success() {
			o.log.Info().Str("step", stp.Name).Dur("duration", res.Duration).Msg("Step succeeded")
			continue
		}

		if err := o.ledger.Append(Record{
			Step:    stp.Name,
			Class:   res.Class,
			Code:    res.Code,
			Command: CommandOf(res.Err),
			Message: res.Err.Error(),
		}); err != nil {
			o.state = RunCompleted
			return summary, err
		}

		if stp.Critical {
			o.log.Error().Str("step", stp.Name).Msg("Critical step failed, halting run")
			summary.Halted = true
			break
		}
	}

	summary.FailedSteps = o.ledger.FailedSteps()
	summary.LedgerKept = !o.ledger.Empty()
	summary.Duration = time.Since(started)
	o.state = RunCompleted

	if err := o.ledger.Close(); err != nil {
		return summary, err
	}
	if ctx.Err() != nil {
		return summary, errorx.TimeoutElapsed.Wrap(ctx.Err(), "run interrupted")
	}
	return summary, nil
}

func (o *Orchestrator) runStep(ctx context.Context, stp Step) ExecutionResult {
	started := time.Now()
	err := stp.Operation(ctx)
	res := ExecutionResult{
		Step:     stp.Name,
		Duration: time.Since(started),
	}

	if err == nil {
		res.Status = StatusSucceeded
		return res
	}

	res.Status = StatusFailed
	res.Err = err
	res.Class = ClassifyError(err)
	res.Code = ExitCodeOf(err)

	o.log.Error().
		Str("step", stp.Name).
		Str("class", res.Class.String()).
		Int("code", res.Code).
		Err(err).
		Msg("Step failed")
	return res
}
