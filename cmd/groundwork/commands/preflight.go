// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"

	"github.com/automa-saga/automa"
	"github.com/spf13/cobra"

	"github.com/groundwork-sh/groundwork/internal/doctor"
	"github.com/groundwork-sh/groundwork/internal/workflows"
	"github.com/groundwork-sh/groundwork/pkg/logx"
)

var preflightCmd = &cobra.Command{
	Use:   "preflight",
	Short: "Check that this host can be provisioned",
	Long:  "Validate privileges, OS release, package manager and host resources without changing anything",
	Run: func(cmd *cobra.Command, args []string) {
		runPreflight(cmd.Context())
		logx.As().Info().Msg("Preflight checks passed")
	},
}

// runPreflight executes the preflight workflow and terminates the process
// on the first failed check.
func runPreflight(ctx context.Context) *automa.Report {
	wb, err := workflows.NewPreflightWorkflow().Build()
	if err != nil {
		doctor.CheckErr(ctx, err)
	}

	report := wb.Execute(ctx)
	if report.Error != nil {
		doctor.CheckErr(ctx, report.Error, "Fix the reported precondition and run again")
	}

	for _, stepReport := range report.StepReports {
		if stepReport.Status == automa.StatusFailed {
			doctor.CheckErr(ctx, stepReport.Error, "Fix the reported precondition and run again")
		}
	}

	return report
}
