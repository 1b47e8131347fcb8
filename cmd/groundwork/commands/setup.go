// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/groundwork-sh/groundwork/internal/config"
	"github.com/groundwork-sh/groundwork/internal/core"
	"github.com/groundwork-sh/groundwork/internal/doctor"
	"github.com/groundwork-sh/groundwork/internal/inputs"
	"github.com/groundwork-sh/groundwork/internal/orchestrator"
	"github.com/groundwork-sh/groundwork/internal/workflows"
	"github.com/groundwork-sh/groundwork/internal/workflows/steps"
	"github.com/groundwork-sh/groundwork/pkg/backup"
	"github.com/groundwork-sh/groundwork/pkg/detect"
	"github.com/groundwork-sh/groundwork/pkg/logx"
	"github.com/groundwork-sh/groundwork/pkg/plock"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Provision this host",
	Long:  "Run the full provisioning sequence: timezone, APT sources, snapd removal, upgrades, admin user, SSH and kernel hardening, Docker",
	Run: func(cmd *cobra.Command, args []string) {
		if err := cmd.ParseFlags(args); err != nil {
			logx.As().Error().Err(err).Msg("Failed to parse flags")
			os.Exit(1)
		}

		runSetup(cmd.Context())
	},
}

func runSetup(ctx context.Context) {
	runPreflight(ctx)

	doctor.CheckErr(ctx, core.Paths().EnsureDirectories())

	lock, err := plock.Acquire(core.Paths().LockFile)
	doctor.CheckErr(ctx, err, "Wait for the other run to finish, or remove a stale lock file")
	defer func() { _ = lock.Release() }()

	cfg := config.Get()
	if flagNonInteractive {
		cfg.NonInteractive = true
	}

	// all inputs are resolved before the first step runs
	ans, err := inputs.Collect(cfg)
	doctor.CheckErr(ctx, err)

	osInfo, err := detect.Host()
	doctor.CheckErr(ctx, err)

	store := backup.NewStore(core.Paths().BackupDir)
	if _, pruneErr := store.Prune(time.Duration(cfg.Backup.RetentionDays) * 24 * time.Hour); pruneErr != nil {
		logx.As().Warn().Err(pruneErr).Msg("Could not prune old backups")
	}

	engine := orchestrator.NewEngine(orchestrator.RetryConfig{
		MaxRetries: cfg.Retry.MaxRetries,
		Policy:     orchestrator.Policy(cfg.Retry.Policy),
		BaseWait:   time.Duration(cfg.Retry.BaseWaitSeconds) * time.Second,
	}, logx.As())

	ledger, err := orchestrator.OpenLedger(core.Paths().LedgerFile)
	doctor.CheckErr(ctx, err)

	rc := steps.RunContext{
		Cfg:     cfg,
		Ans:     ans,
		OS:      osInfo,
		Engine:  engine,
		Backups: store,
	}

	orch := orchestrator.New(ledger, logx.As(), workflows.BuildProvisionPlan(rc)...)
	summary, runErr := orch.Run(ctx)

	if summary != nil {
		workflows.PrintRunSummary(summary)
		if reportPath, reportErr := workflows.SaveRunReport(summary); reportErr != nil {
			logx.As().Warn().Err(reportErr).Msg("Could not save run report")
		} else {
			logx.As().Info().Str("report_path", reportPath).Msg("Run report saved")
		}
	}

	if runErr != nil {
		_ = lock.Release()
		doctor.CheckErr(ctx, runErr)
	}

	logx.As().Info().Str("execution_time", logx.ExecutionTime()).Msg("Provisioning finished")
	_ = lock.Release()
	summary.ExitCode().TerminateProcess()
}
