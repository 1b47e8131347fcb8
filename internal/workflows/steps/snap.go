// SPDX-License-Identifier: Apache-2.0

package steps

import (
	"context"
	"os"

	"github.com/automa-saga/automa"

	"github.com/groundwork-sh/groundwork/internal/orchestrator"
	"github.com/groundwork-sh/groundwork/pkg/logx"
	"github.com/groundwork-sh/groundwork/pkg/pkgmgr"
	"github.com/groundwork-sh/groundwork/pkg/systemd"
)

// use var to allow mocking in tests
var snapLeftoverDirs = []string{"/snap", "/var/snap", "/var/lib/snapd", "/root/snap"}

// RemoveSnapdStep purges snapd and its leftovers. Hosts without snapd pass
// through untouched.
func RemoveSnapdStep(rc RunContext) orchestrator.Step {
	return orchestrator.Step{
		Name: "remove-snapd",
		Operation: func(ctx context.Context) error {
			installed, err := pkgmgr.IsInstalled("snapd")
			if err != nil {
				return err
			}
			if !installed {
				logx.As().Info().Msg("snapd is not installed, nothing to remove")
				return nil
			}

			wf, err := automa.NewWorkflowBuilder().WithId("remove-snapd").Steps(
				stopSnapdUnitsStep(),
				purgeSnapdStep(),
				cleanSnapLeftoversStep(),
			).Build()
			if err != nil {
				return err
			}

			if report := wf.Execute(ctx); report.Error != nil {
				return report.Error
			}
			return nil
		},
	}
}

func stopSnapdUnitsStep() automa.Builder {
	return automa.NewStepBuilder().WithId("stop-snapd-units").
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			// failures here are tolerable, purge stops whatever is left
			for _, unit := range []string{"snapd.socket", "snapd.service"} {
				if err := systemd.StopService(ctx, unit); err != nil {
					logx.As().Warn().Err(err).Str("unit", unit).Msg("Could not stop unit")
				}
				if err := systemd.DisableService(ctx, unit); err != nil {
					logx.As().Warn().Err(err).Str("unit", unit).Msg("Could not disable unit")
				}
			}
			return automa.SuccessReport(stp)
		})
}

func purgeSnapdStep() automa.Builder {
	return automa.NewStepBuilder().WithId("purge-snapd").
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			if err := pkgmgr.Purge("snapd"); err != nil {
				return automa.FailureReport(stp, automa.WithError(err))
			}
			return automa.SuccessReport(stp)
		}).
		WithOnFailure(func(ctx context.Context, stp automa.Step, rpt *automa.Report) {
			logx.As().Error().Err(rpt.Error).Msg("Failed to purge snapd")
		})
}

func cleanSnapLeftoversStep() automa.Builder {
	return automa.NewStepBuilder().WithId("clean-snap-leftovers").
		WithExecute(func(ctx context.Context, stp automa.Step) *automa.Report {
			for _, dir := range snapLeftoverDirs {
				if err := os.RemoveAll(dir); err != nil {
					return automa.FailureReport(stp, automa.WithError(err))
				}
			}
			logx.As().Info().Msg("snapd removed")
			return automa.SuccessReport(stp)
		})
}
